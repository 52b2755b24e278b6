package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/justsurfingit/job-board/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of a gorm connection (postgres or sqlite).
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
}

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// --- users ---

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db(ctx).Create(u).Error)
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	res := s.db(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) CreateRecruiter(ctx context.Context, r *models.Recruiter) error {
	return translate(s.db(ctx).Create(r).Error)
}

func (s *GormStore) CreateApplicant(ctx context.Context, a *models.Applicant) error {
	return translate(s.db(ctx).Create(a).Error)
}

// --- jobs ---

func (s *GormStore) CreateJob(ctx context.Context, j *models.Job) error {
	return translate(s.db(ctx).Omit(clause.Associations).Create(j).Error)
}

func (s *GormStore) FindJob(ctx context.Context, id string) (*models.Job, error) {
	var j models.Job
	if err := s.db(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, translate(err)
	}
	return &j, nil
}

func (s *GormStore) FindOwnedJob(ctx context.Context, id, ownerID string) (*models.Job, error) {
	var j models.Job
	if err := s.db(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&j).Error; err != nil {
		return nil, translate(err)
	}
	return &j, nil
}

var mutableJobFields = []string{
	"Title", "MaxApplicants", "MaxPositions", "Deadline", "Skillsets",
	"JobType", "Duration", "Salary", "Rating", "Description", "Location",
}

func (s *GormStore) SaveJob(ctx context.Context, j *models.Job) error {
	res := s.db(ctx).Model(j).Select(mutableJobFields).Updates(j)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteJob(ctx context.Context, id string) error {
	res := s.db(ctx).Delete(&models.Job{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListJobs(ctx context.Context, q JobQuery) ([]models.Job, error) {
	tx := s.db(ctx).Model(&models.Job{}).InnerJoins("Recruiter")

	if q.TitleContains != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.TitleContains)) + "%"
		tx = tx.Where(`LOWER(jobs.title) LIKE ? ESCAPE '\'`, pattern)
	}
	if len(q.JobTypes) > 0 {
		tx = tx.Where("jobs.job_type IN ?", q.JobTypes)
	}
	if q.SalaryMin != nil {
		tx = tx.Where("jobs.salary >= ?", *q.SalaryMin)
	}
	if q.SalaryMax != nil {
		tx = tx.Where("jobs.salary <= ?", *q.SalaryMax)
	}
	if q.DurationBelow != nil {
		tx = tx.Where("jobs.duration < ?", *q.DurationBelow)
	}
	for _, key := range q.Sort {
		if !isSortableColumn(key.Column) {
			return nil, fmt.Errorf("column %q is not sortable", key.Column)
		}
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Table: "jobs", Name: key.Column},
			Desc:   key.Desc,
		})
	}

	var jobs []models.Job
	if err := tx.Find(&jobs).Error; err != nil {
		return nil, translate(err)
	}
	return jobs, nil
}

func isSortableColumn(col string) bool {
	for _, c := range SortableColumns {
		if c == col {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// --- applications ---

func (s *GormStore) CreateApplication(ctx context.Context, a *models.Application) error {
	return translate(s.db(ctx).Create(a).Error)
}

func (s *GormStore) FindApplication(ctx context.Context, id string) (*models.Application, error) {
	var a models.Application
	if err := s.db(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *GormStore) applications(ctx context.Context, f ApplicationFilter) *gorm.DB {
	tx := s.db(ctx).Model(&models.Application{})
	if f.ID != "" {
		tx = tx.Where("id = ?", f.ID)
	}
	if f.ExcludeID != "" {
		tx = tx.Where("id <> ?", f.ExcludeID)
	}
	if f.UserID != "" {
		tx = tx.Where("user_id = ?", f.UserID)
	}
	if f.JobID != "" {
		tx = tx.Where("job_id = ?", f.JobID)
	}
	if f.RecruiterID != "" {
		tx = tx.Where("recruiter_id = ?", f.RecruiterID)
	}
	if len(f.StatusIn) > 0 {
		tx = tx.Where("status IN ?", f.StatusIn)
	}
	if len(f.StatusNotIn) > 0 {
		tx = tx.Where("status NOT IN ?", f.StatusNotIn)
	}
	return tx
}

func (s *GormStore) ExistsApplication(ctx context.Context, f ApplicationFilter) (bool, error) {
	var a models.Application
	err := s.applications(ctx, f).Select("id").Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (s *GormStore) CountApplications(ctx context.Context, f ApplicationFilter) (int64, error) {
	var n int64
	if err := s.applications(ctx, f).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (s *GormStore) ListApplications(ctx context.Context, f ApplicationFilter) ([]models.Application, error) {
	var out []models.Application
	if err := s.applications(ctx, f).Order("date_of_application ASC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *GormStore) UpdateApplicationStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error {
	res := s.db(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	exists, err := s.ExistsApplication(ctx, ApplicationFilter{ID: id})
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStale
}

func (s *GormStore) SetJoiningDate(ctx context.Context, id string, joined time.Time) error {
	res := s.db(ctx).Model(&models.Application{}).Where("id = ?", id).Update("date_of_joining", joined)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SetStatusWhere(ctx context.Context, f ApplicationFilter, status models.ApplicationStatus) (int64, error) {
	res := s.applications(ctx, f).Update("status", status)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
