package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shipstream/internal/http/handler"
	"shipstream/internal/mail"
	"shipstream/internal/queue"
	repo "shipstream/internal/repository/postgres"
	"shipstream/internal/service"
)

func newNotifierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifier",
		Short: "Run the email notification service",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), "notifier")
			if err != nil {
				return err
			}

			notifier := service.NewNotifier(
				repo.NewProcessingRepository(rt.db),
				mail.NewSMTP(rt.cfg.SMTP),
				rt.cfg.SMTP,
				rt.log,
			)

			emailConsumer := queue.NewConsumer(rt.queue, queue.TopicEmailNotifications,
				queue.HandlerFunc(func(ctx context.Context, msg *queue.Message) error {
					var event service.EmailEvent
					if err := msg.Bind(&event); err != nil {
						return err
					}
					return notifier.Notify(ctx, event)
				}), rt.cfg.Queue, rt.log)

			errorConsumer := queue.NewConsumer(rt.queue, queue.TopicProcessingErrors,
				queue.HandlerFunc(func(ctx context.Context, msg *queue.Message) error {
					var event service.ErrorEvent
					if err := msg.Bind(&event); err != nil {
						return err
					}
					return notifier.NotifyError(ctx, event)
				}), rt.cfg.Queue, rt.log)

			app := rt.newApp("notifier")
			handler.RegisterNotifierRoutes(app, handler.NewNotifierHandler(notifier, rt.log))

			rt.log.Info("notifier service starting", zap.String("port", rt.cfg.Port))
			return rt.serve(app, emailConsumer, errorConsumer)
		},
	}
}
