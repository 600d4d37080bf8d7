package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mentor_lms_backend/internal/config"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/repository"
	"mentor_lms_backend/internal/util"
	"mentor_lms_backend/pkg/logger"
	"mentor_lms_backend/pkg/monitoring"
	"mentor_lms_backend/pkg/tracing"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CertificateService struct {
	Gate         *CompletionGate
	Courses      *repository.CourseRepository
	Enrollments  *repository.EnrollmentRepository
	Users        *repository.UserRepository
	Certificates *repository.CertificateRepository
	Storage      *StorageService
	Renderer     CertificateRenderer
	Config       config.CertificateConfig
	now          func() time.Time
}

func NewCertificateService(
	gate *CompletionGate,
	courses *repository.CourseRepository,
	enrollments *repository.EnrollmentRepository,
	users *repository.UserRepository,
	certificates *repository.CertificateRepository,
	storage *StorageService,
	renderer CertificateRenderer,
	cfg config.CertificateConfig,
) *CertificateService {
	return &CertificateService{
		Gate:         gate,
		Courses:      courses,
		Enrollments:  enrollments,
		Users:        users,
		Certificates: certificates,
		Storage:      storage,
		Renderer:     renderer,
		Config:       cfg,
		now:          time.Now,
	}
}

// IssueResult Created 为 false 表示返回的是已签发的证书
type IssueResult struct {
	Certificate *model.Certificate `json:"certificate"`
	Created     bool               `json:"created"`
}

// CertificateView 证书及其展示信息
type CertificateView struct {
	model.Certificate
	CourseTitle string `json:"courseTitle"`
	StudentName string `json:"studentName"`
}

// IssueCertificate 仅在课程至少一个章节且全部完成时签发，重复请求返回已有证书
func (s *CertificateService) IssueCertificate(ctx context.Context, studentID, courseID uint) (result *IssueResult, err error) {
	ctx, span := tracing.Start(ctx, "CertificateService.IssueCertificate",
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("course.id", int64(courseID)),
	)
	defer func() { tracing.End(span, err) }()

	const op = "CertificateService.IssueCertificate"

	course, err := s.Courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFoundError(op, "course not found").WithDetail("courseId", courseID)
		}
		return nil, err
	}

	enrolled, err := s.Enrollments.Exists(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, util.ForbiddenError(op, "not assigned to this course").WithDetail("courseId", courseID)
	}

	existing, err := s.Certificates.FindByStudentCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		monitoring.CertificateIssues.WithLabelValues("existing").Inc()
		return &IssueResult{Certificate: existing, Created: false}, nil
	}

	snapshot, err := s.Gate.VerifiedCompletion(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if snapshot.TotalChapters == 0 {
		monitoring.CertificateIssues.WithLabelValues("rejected").Inc()
		return nil, util.InvalidStateError(op, "course has no chapters").
			WithDetail("courseId", courseID).
			WithDetail("totalChapters", 0)
	}
	if !snapshot.IsComplete {
		monitoring.CertificateIssues.WithLabelValues("rejected").Inc()
		appErr := util.InvalidStateError(op, "course not completed").
			WithDetail("courseId", courseID).
			WithDetail("completedChapters", snapshot.CompletedChapters).
			WithDetail("totalChapters", snapshot.TotalChapters).
			WithDetail("completionPercentage", snapshot.CompletionPercentage)
		if snapshot.NextChapter != nil {
			appErr.WithDetail("nextChapterId", snapshot.NextChapter.ID)
		}
		logger.Log.Info("certificate issuance rejected",
			zap.Uint("studentId", studentID),
			zap.Uint("courseId", courseID),
			zap.Int("completed", snapshot.CompletedChapters),
			zap.Int("total", snapshot.TotalChapters),
		)
		return nil, appErr
	}

	student, err := s.Users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFoundError(op, "student not found").WithDetail("studentId", studentID)
		}
		return nil, err
	}

	issuedAt := s.now()
	number := s.newCertificateNumber()
	artifact, err := s.Renderer.Render(CertificateData{
		Number:      number,
		StudentName: student.Name,
		CourseTitle: course.Title,
		Chapters:    snapshot.TotalChapters,
		IssuerName:  s.Config.IssuerName,
		IssuedAt:    issuedAt,
	})
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("certificates/%d/%s%s", courseID, number, s.Renderer.Extension())
	url, err := s.Storage.Upload(ctx, key, bytes.NewReader(artifact), int64(len(artifact)), s.Renderer.ContentType())
	if err != nil {
		logger.Log.Error("Failed to upload certificate artifact", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("upload certificate artifact: %w", err)
	}

	// 渲染和上传期间导师可能追加了章节，落库前再确认一次
	complete, err := s.Gate.IsCourseComplete(ctx, studentID, courseID)
	if err == nil && !complete {
		monitoring.CertificateIssues.WithLabelValues("rejected").Inc()
		err = util.InvalidStateError(op, "course changed during issuance").WithDetail("courseId", courseID)
	}
	if err != nil {
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("Failed to delete orphan certificate artifact", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	stored, created, err := s.Certificates.CreateIfAbsent(ctx, &model.Certificate{
		StudentID:         studentID,
		CourseID:          courseID,
		CertificateNumber: number,
		ArtifactKey:       key,
		ArtifactURL:       url,
		IssuedAt:          issuedAt,
	})
	if err != nil || !created {
		// 并发签发落败或写库失败，清理本次上传的文件
		if delErr := s.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("Failed to delete orphan certificate artifact", zap.String("key", key), zap.Error(delErr))
		}
	}
	if err != nil {
		return nil, err
	}

	if created {
		monitoring.CertificateIssues.WithLabelValues("issued").Inc()
		logger.Log.Info("certificate issued",
			zap.Uint("studentId", studentID),
			zap.Uint("courseId", courseID),
			zap.String("number", stored.CertificateNumber),
		)
	} else {
		monitoring.CertificateIssues.WithLabelValues("existing").Inc()
	}
	return &IssueResult{Certificate: stored, Created: created}, nil
}

func (s *CertificateService) newCertificateNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	prefix := s.Config.NumberPrefix
	if prefix == "" {
		prefix = "CERT"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, s.now().Format("2006"), id[:16])
}

// ListStudentCertificates 学生已获得的证书
func (s *CertificateService) ListStudentCertificates(ctx context.Context, studentID uint) ([]CertificateView, error) {
	certs, err := s.Certificates.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	courseIDs := make([]uint, 0, len(certs))
	for _, c := range certs {
		courseIDs = append(courseIDs, c.CourseID)
	}
	courses, err := s.Courses.FindByIDs(ctx, courseIDs)
	if err != nil {
		return nil, err
	}
	titles := make(map[uint]string, len(courses))
	for _, c := range courses {
		titles[c.ID] = c.Title
	}
	student, err := s.Users.FindByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	views := make([]CertificateView, 0, len(certs))
	for _, c := range certs {
		views = append(views, CertificateView{
			Certificate: c,
			CourseTitle: titles[c.CourseID],
			StudentName: student.Name,
		})
	}
	return views, nil
}

// VerifyCertificate 按证书编号公开查询
func (s *CertificateService) VerifyCertificate(ctx context.Context, number string) (*CertificateView, error) {
	const op = "CertificateService.VerifyCertificate"

	cert, err := s.Certificates.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NotFoundError(op, "certificate not found").WithDetail("certificateNumber", number)
		}
		return nil, err
	}

	view := &CertificateView{Certificate: *cert}
	if course, err := s.Courses.FindByID(ctx, cert.CourseID); err == nil {
		view.CourseTitle = course.Title
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if student, err := s.Users.FindByID(ctx, cert.StudentID); err == nil {
		view.StudentName = student.Name
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return view, nil
}
