package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shipstream/internal/http/handler"
	"shipstream/internal/queue"
	repo "shipstream/internal/repository/postgres"
	"shipstream/internal/service"
)

func newPackerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "packer",
		Short: "Run the package archiving service",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), "packer")
			if err != nil {
				return err
			}

			packer := service.NewPacker(
				rt.store,
				rt.queue,
				repo.NewProcessingRepository(rt.db),
				repo.NewCleanupRepository(rt.db),
				rt.cfg.Buckets,
				rt.cfg.Processing,
				rt.log,
			)

			consumer := queue.NewConsumer(rt.queue, queue.TopicPackagesReady,
				queue.HandlerFunc(func(ctx context.Context, msg *queue.Message) error {
					var event service.PackageReadyEvent
					if err := msg.Bind(&event); err != nil {
						return err
					}
					_, err := packer.ProcessPackage(ctx, event.Object)
					return err
				}), rt.cfg.Queue, rt.log)

			cleanup := service.NewCleanupWorker(packer, 5*time.Minute, rt.log)
			go cleanup.Start(cmd.Context())
			defer cleanup.Stop()

			app := rt.newApp("packer")
			handler.RegisterPackerRoutes(app, handler.NewPackerHandler(packer, rt.guard, rt.log))

			rt.log.Info("packer service starting", zap.String("port", rt.cfg.Port))
			return rt.serve(app, consumer)
		},
	}
}
