package services

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

//go:embed fixtures/default.yaml
var defaultFixtures []byte

// Fixtures is the YAML document loaded by the seed command
type Fixtures struct {
	Users      []SeedUser     `yaml:"users"`
	Categories []SeedCategory `yaml:"categories"`
	Tags       []SeedTag      `yaml:"tags"`
	Tasks      []SeedTask     `yaml:"tasks"`
}

type SeedUser struct {
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Email    string            `yaml:"email"`
	Role     entities.UserRole `yaml:"role"`
}

type SeedCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

type SeedTag struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type SeedTask struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Priority    int      `yaml:"priority"`
	Completed   bool     `yaml:"completed"`
	DueDate     string   `yaml:"due_date"`
	Owner       string   `yaml:"owner"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
}

// SeedResult counts the rows written by a seed run
type SeedResult struct {
	UsersCreated int
	UsersKept    int
	Categories   int
	Tags         int
	Tasks        int
}

// LoadFixtures reads fixtures from path, or the bundled defaults when path
// is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	data := defaultFixtures
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixtures: %w", err)
		}
		data = raw
	}

	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

// SeedService loads sample data and default accounts
type SeedService struct {
	users      ports.UserRepository
	tasks      ports.TaskRepository
	taxonomy   ports.TaxonomyRepository
	history    ports.HistoryRepository
	tx         ports.Transactor
	logger     *logger.Logger
	bcryptCost int
}

func NewSeedService(
	users ports.UserRepository,
	tasks ports.TaskRepository,
	taxonomy ports.TaxonomyRepository,
	history ports.HistoryRepository,
	tx ports.Transactor,
	logger *logger.Logger,
) *SeedService {
	return &SeedService{
		users:      users,
		tasks:      tasks,
		taxonomy:   taxonomy,
		history:    history,
		tx:         tx,
		logger:     logger.WithComponent("seed"),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Seed writes every fixture in a single transaction. Existing users,
// categories and tags are reused by name.
func (s *SeedService) Seed(ctx context.Context, f *Fixtures) (*SeedResult, error) {
	result := &SeedResult{}

	err := s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		userIDs, err := s.ensureUsers(ctx, tx, f.Users, result)
		if err != nil {
			return err
		}

		categoryIDs := make(map[string]int64, len(f.Categories))
		for _, c := range f.Categories {
			category := &entities.Category{
				Name:        c.Name,
				Description: optionalString(c.Description),
				Color:       optionalString(c.Color),
			}
			if err := s.taxonomy.CreateCategory(ctx, tx, category); err != nil {
				return fmt.Errorf("category %q: %w", c.Name, err)
			}
			categoryIDs[c.Name] = category.ID
			result.Categories++
		}

		tagIDs := make(map[string]int64, len(f.Tags))
		for _, t := range f.Tags {
			tag := &entities.Tag{Name: t.Name, Color: optionalString(t.Color)}
			if err := s.taxonomy.CreateTag(ctx, tx, tag); err != nil {
				return fmt.Errorf("tag %q: %w", t.Name, err)
			}
			tagIDs[t.Name] = tag.ID
			result.Tags++
		}

		for _, st := range f.Tasks {
			task, tags, err := buildSeedTask(st, userIDs, categoryIDs, tagIDs)
			if err != nil {
				return err
			}
			if err := s.tasks.Create(ctx, tx, task); err != nil {
				return fmt.Errorf("task %q: %w", st.Title, err)
			}
			if err := s.tasks.SetTags(ctx, tx, task.ID, tags); err != nil {
				return fmt.Errorf("task %q tags: %w", st.Title, err)
			}
			err = s.history.Record(ctx, tx, &entities.TaskHistory{
				TaskID:  task.ID,
				UserID:  task.UserID,
				Action:  entities.HistoryActionCreated,
				Details: []byte(`{"source":"seed"}`),
			})
			if err != nil {
				return err
			}
			result.Tasks++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed failed: %w", err)
	}

	s.logger.Infow("Seed completed",
		"users_created", result.UsersCreated,
		"categories", result.Categories,
		"tags", result.Tags,
		"tasks", result.Tasks,
	)
	return result, nil
}

// EnsureUsers creates the given accounts when missing and leaves existing
// ones untouched.
func (s *SeedService) EnsureUsers(ctx context.Context, accounts []SeedUser) (*SeedResult, error) {
	result := &SeedResult{}
	err := s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := s.ensureUsers(ctx, tx, accounts, result)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ensure users failed: %w", err)
	}
	return result, nil
}

func (s *SeedService) ensureUsers(ctx context.Context, tx *sqlx.Tx, accounts []SeedUser, result *SeedResult) (map[string]int64, error) {
	ids := make(map[string]int64, len(accounts))
	for _, a := range accounts {
		role := a.Role
		if role == "" {
			role = entities.UserRoleUser
		}
		req := ports.RegisterRequest{Username: a.Username, Password: a.Password, Email: optionalString(a.Email)}
		if err := Validate(req); err != nil {
			return nil, fmt.Errorf("user %q: %w", a.Username, err)
		}
		if !role.IsValid() {
			return nil, fmt.Errorf("user %q: %w", a.Username, entities.NewValidationError("role", "role must be user or admin"))
		}

		hash, err := HashPassword(a.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user := &entities.User{Username: a.Username, Email: req.Email, PasswordHash: hash, Role: role}
		created, err := s.users.Ensure(ctx, tx, user)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", a.Username, err)
		}
		if created {
			result.UsersCreated++
		} else {
			result.UsersKept++
		}
		ids[a.Username] = user.ID
	}
	return ids, nil
}

func buildSeedTask(st SeedTask, users, categories, tags map[string]int64) (*entities.Task, []int64, error) {
	ownerID, ok := users[st.Owner]
	if !ok {
		return nil, nil, fmt.Errorf("task %q: unknown owner %q", st.Title, st.Owner)
	}

	task := &entities.Task{
		Title:       st.Title,
		Description: optionalString(st.Description),
		Completed:   st.Completed,
		Priority:    entities.PriorityDefault,
		UserID:      ownerID,
	}
	if st.Priority != 0 {
		if !entities.ValidPriority(st.Priority) {
			return nil, nil, fmt.Errorf("task %q: priority must be between 1 and 3", st.Title)
		}
		task.Priority = st.Priority
	}
	if st.DueDate != "" {
		due, err := entities.ParseDate(st.DueDate)
		if err != nil {
			return nil, nil, fmt.Errorf("task %q: %w", st.Title, err)
		}
		task.DueDate = &due
	}
	if st.Category != "" {
		id, ok := categories[st.Category]
		if !ok {
			return nil, nil, fmt.Errorf("task %q: unknown category %q", st.Title, st.Category)
		}
		task.CategoryID = &id
	}

	tagIDs := make([]int64, 0, len(st.Tags))
	for _, name := range st.Tags {
		id, ok := tags[name]
		if !ok {
			return nil, nil, fmt.Errorf("task %q: unknown tag %q", st.Title, name)
		}
		tagIDs = append(tagIDs, id)
	}
	return task, tagIDs, nil
}
