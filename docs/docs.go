package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": [
        "{{ marshal .Schemes }}"
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "Health"
                ],
                "summary": "Liveness probe",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Server is running"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": [
                    "Health"
                ],
                "summary": "Readiness probe",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Database reachable"
                    },
                    "503": {
                        "description": "Database not ready"
                    }
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Register a user",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "Token for the new user"
                    },
                    "400": {
                        "description": "Validation failed or username taken"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "account",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "required": [
                                "username",
                                "password"
                            ],
                            "properties": {
                                "username": {
                                    "type": "string"
                                },
                                "password": {
                                    "type": "string"
                                },
                                "email": {
                                    "type": "string"
                                }
                            }
                        }
                    }
                ]
            }
        },
        "/auth/login": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Log in",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Bearer token"
                    },
                    "400": {
                        "description": "Missing credentials"
                    },
                    "401": {
                        "description": "Invalid credentials"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "credentials",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "required": [
                                "username",
                                "password"
                            ],
                            "properties": {
                                "username": {
                                    "type": "string"
                                },
                                "password": {
                                    "type": "string"
                                },
                                "remember": {
                                    "type": "boolean"
                                }
                            }
                        }
                    }
                ]
            }
        },
        "/auth/me": {
            "get": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Current user",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Identity of the token holder"
                    },
                    "401": {
                        "description": "Unauthorized"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/auth/users": {
            "get": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Count users",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Number of registered users"
                    }
                }
            }
        },
        "/tasks": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "List tasks",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Page of tasks with pagination"
                    },
                    "400": {
                        "description": "Invalid filter"
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "page",
                        "type": "integer",
                        "description": "Page number, default 1"
                    },
                    {
                        "in": "query",
                        "name": "limit",
                        "type": "integer",
                        "description": "Page size, 1-50, default 10"
                    },
                    {
                        "in": "query",
                        "name": "completed",
                        "type": "boolean",
                        "description": "Filter by completion"
                    },
                    {
                        "in": "query",
                        "name": "category",
                        "type": "integer",
                        "description": "Category id"
                    },
                    {
                        "in": "query",
                        "name": "tag",
                        "type": "integer",
                        "description": "Tag id"
                    },
                    {
                        "in": "query",
                        "name": "search",
                        "type": "string",
                        "description": "Substring of title or description"
                    },
                    {
                        "in": "query",
                        "name": "sort",
                        "type": "string",
                        "description": "newest, oldest, priority or dueDate"
                    }
                ]
            },
            "post": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Create a task",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "Created task"
                    },
                    "400": {
                        "description": "Validation failed"
                    },
                    "401": {
                        "description": "Unauthorized"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "task",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "required": [
                                "title"
                            ],
                            "properties": {
                                "title": {
                                    "type": "string"
                                },
                                "description": {
                                    "type": "string"
                                },
                                "priority": {
                                    "type": "integer"
                                },
                                "due_date": {
                                    "type": "string"
                                },
                                "category_id": {
                                    "type": "integer"
                                },
                                "tags": {
                                    "type": "array"
                                }
                            }
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/{id}": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Get a task",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Task with tags and attachments"
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "integer",
                        "required": true
                    }
                ]
            },
            "put": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Update a task",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Updated task"
                    },
                    "400": {
                        "description": "Validation failed"
                    },
                    "403": {
                        "description": "Not the owner"
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "integer",
                        "required": true
                    },
                    {
                        "in": "body",
                        "name": "patch",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "required": [],
                            "properties": {
                                "title": {
                                    "type": "string"
                                },
                                "description": {
                                    "type": "string"
                                },
                                "completed": {
                                    "type": "boolean"
                                },
                                "priority": {
                                    "type": "integer"
                                },
                                "due_date": {
                                    "type": "string"
                                },
                                "category_id": {
                                    "type": "integer"
                                },
                                "tags": {
                                    "type": "array"
                                }
                            }
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Delete a task",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Task deleted"
                    },
                    "403": {
                        "description": "Not the owner"
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "integer",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/{id}/history": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "Task history",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "History entries"
                    },
                    "403": {
                        "description": "Not the owner"
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "integer",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/tasks/categories/all": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "List categories",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "All categories"
                    }
                }
            }
        },
        "/tasks/tags/all": {
            "get": {
                "tags": [
                    "Tasks"
                ],
                "summary": "List tags",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "All tags"
                    }
                }
            }
        },
        "/upload": {
            "post": {
                "tags": [
                    "Uploads"
                ],
                "summary": "Upload an image",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "Uploaded attachment"
                    },
                    "400": {
                        "description": "Missing, too large or unsupported file"
                    },
                    "403": {
                        "description": "Not the task owner"
                    },
                    "404": {
                        "description": "Task not found"
                    },
                    "500": {
                        "description": "Failed to process file upload"
                    }
                },
                "consumes": [
                    "multipart/form-data"
                ],
                "parameters": [
                    {
                        "in": "formData",
                        "name": "image",
                        "type": "file",
                        "required": true,
                        "description": "JPG or PNG image"
                    },
                    {
                        "in": "formData",
                        "name": "taskId",
                        "type": "integer",
                        "description": "Task to attach the image to"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/upload/task/{taskId}": {
            "get": {
                "tags": [
                    "Uploads"
                ],
                "summary": "List task attachments",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Attachments"
                    },
                    "404": {
                        "description": "Task not found"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "taskId",
                        "type": "integer",
                        "required": true
                    }
                ]
            }
        },
        "/upload/{id}": {
            "delete": {
                "tags": [
                    "Uploads"
                ],
                "summary": "Delete an attachment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Attachment deleted"
                    },
                    "403": {
                        "description": "Not allowed"
                    },
                    "404": {
                        "description": "Attachment not found"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "integer",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api": {
            "get": {
                "tags": [
                    "Status"
                ],
                "summary": "API index",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Endpoint listing"
                    }
                }
            }
        },
        "/api/db-status": {
            "get": {
                "tags": [
                    "Status"
                ],
                "summary": "Database status",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Connectivity and record counts"
                    },
                    "403": {
                        "description": "Admin access required"
                    },
                    "503": {
                        "description": "Database unreachable"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/admin/users": {
            "get": {
                "tags": [
                    "Admin"
                ],
                "summary": "List users",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "Users without password hashes"
                    },
                    "403": {
                        "description": "Admin access required"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and JWT token"
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Todo List API",
	Description:      "Multi-user to-do list service",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
