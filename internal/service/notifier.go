package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"shipstream/internal/config"
	"shipstream/internal/mail"
	"shipstream/internal/repository"
)

// NotifierService sends processing status emails.
type NotifierService interface {
	Notify(ctx context.Context, event EmailEvent) error
	NotifyError(ctx context.Context, event ErrorEvent) error
}

type notifierService struct {
	processings repository.ProcessingRepository
	mailer      mail.Mailer
	smtp        config.SMTPConfig
	log         *zap.Logger
	now         func() time.Time
}

// NewNotifier wires the notification pipeline.
func NewNotifier(
	processings repository.ProcessingRepository,
	mailer mail.Mailer,
	smtp config.SMTPConfig,
	log *zap.Logger,
) NotifierService {
	return &notifierService{
		processings: processings,
		mailer:      mailer,
		smtp:        smtp,
		log:         log,
		now:         time.Now,
	}
}

// Notify dispatches an email event to the matching template.
func (s *notifierService) Notify(ctx context.Context, event EmailEvent) error {
	switch event.Kind {
	case EmailKindCompletion:
		return s.sendCompletion(ctx, event)
	case EmailKindFailure:
		return s.sendFailure(ctx, event)
	default:
		return fmt.Errorf("unknown email event kind %q", event.Kind)
	}
}

// NotifyError turns a processing error into an admin failure email.
func (s *notifierService) NotifyError(ctx context.Context, event ErrorEvent) error {
	return s.sendFailure(ctx, EmailEvent{
		Kind:           EmailKindFailure,
		ProcessingUUID: event.ProcessingUUID,
		OriginalFile:   event.Object,
		Stage:          event.Stage,
		ErrorCode:      event.Code,
		ErrorMessage:   event.Message,
	})
}

func (s *notifierService) sendCompletion(ctx context.Context, event EmailEvent) error {
	log := s.log.With(zap.String("processing_uuid", event.ProcessingUUID))

	fp, err := s.processings.GetFileProcessing(ctx, event.ProcessingUUID)
	if err != nil {
		return fmt.Errorf("failed to load processing %s: %w", event.ProcessingUUID, err)
	}
	if fp.EmailSent {
		log.Info("completion email already sent, skipping")
		return nil
	}

	packages, err := s.processings.ListPackageProcessings(ctx, event.ProcessingUUID)
	if err != nil {
		return fmt.Errorf("failed to list packages for %s: %w", event.ProcessingUUID, err)
	}

	data := mail.CompletionData{
		ProcessingUUID: fp.ProcessingUUID,
		OriginalFile:   fp.OriginalFile,
		TotalShipments: fp.TotalShipments,
		TotalPackages:  fp.TotalPackages,
		FinishedAt:     s.now().UTC(),
	}
	if fp.FinishedAt != nil {
		data.FinishedAt = *fp.FinishedAt
	}

	for _, pp := range packages {
		data.ImagesProcessed += pp.ImagesProcessed
		data.ImagesFailed += pp.ImagesFailed
		if pp.SignedURL == "" {
			continue
		}
		link := mail.PackageLink{
			Name:      path.Base(pp.ZipObject),
			SignedURL: pp.SignedURL,
			SizeMB:    float64(pp.ZipSize) / (1024 * 1024),
		}
		if pp.ExpiresAt != nil {
			link.ExpiresAt = *pp.ExpiresAt
		}
		data.Packages = append(data.Packages, link)
	}

	body, err := mail.RenderCompletion(data)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, s.smtp.NotifyTo, mail.CompletionSubject(fp.OriginalFile), body); err != nil {
		return fmt.Errorf("failed to send completion email for %s: %w", event.ProcessingUUID, err)
	}

	if err := s.processings.MarkEmailSent(ctx, event.ProcessingUUID); err != nil {
		log.Error("failed to mark email as sent", zap.Error(err))
	}

	log.Info("completion email sent", zap.Int("packages", len(data.Packages)))
	return nil
}

func (s *notifierService) sendFailure(ctx context.Context, event EmailEvent) error {
	body, err := mail.RenderFailure(mail.FailureData{
		ProcessingUUID: event.ProcessingUUID,
		OriginalFile:   event.OriginalFile,
		Stage:          event.Stage,
		ErrorCode:      event.ErrorCode,
		ErrorMessage:   event.ErrorMessage,
		OccurredAt:     s.now().UTC(),
	})
	if err != nil {
		return err
	}

	to := []string{s.smtp.AdminEmail}
	if s.smtp.AdminEmail == "" {
		to = s.smtp.NotifyTo
	}

	if err := s.mailer.Send(ctx, to, mail.FailureSubject(event.OriginalFile), body); err != nil {
		return fmt.Errorf("failed to send failure email: %w", err)
	}

	s.log.Info("failure email sent",
		zap.String("processing_uuid", event.ProcessingUUID),
		zap.String("stage", event.Stage),
		zap.String("error_code", event.ErrorCode))
	return nil
}
