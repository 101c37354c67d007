package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shipstream/internal/http/handler"
	repo "shipstream/internal/repository/postgres"
	"shipstream/internal/service"
)

func newDivisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "division",
		Short: "Run the file splitting service",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), "division")
			if err != nil {
				return err
			}

			division := service.NewDivision(
				rt.store,
				rt.queue,
				repo.NewImageRepository(rt.db),
				repo.NewProcessingRepository(rt.db),
				rt.cfg.Buckets,
				rt.cfg.Processing,
				rt.cfg.AppVersion,
				rt.log,
			)

			app := rt.newApp("division")
			handler.RegisterDivisionRoutes(app, handler.NewDivisionHandler(division, rt.guard, rt.log))

			rt.log.Info("division service starting", zap.String("port", rt.cfg.Port))
			return rt.serve(app)
		},
	}
}
