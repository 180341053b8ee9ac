// reportingctl — CLI администрирования маппингов пользователей Reporting Module.
// Работает напрямую с PostgreSQL (переменные RM_DB_*), миграции применяются при запуске.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bigkaa/reporting-module/internal/config"
	"github.com/bigkaa/reporting-module/internal/database"
	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/repository"
	"github.com/bigkaa/reporting-module/internal/service"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ошибка: %v\n", err)
		os.Exit(1)
	}
}

// MappingAdmin — операции над маппингами, доступные CLI.
type MappingAdmin interface {
	Create(ctx context.Context, m *model.Mapping) error
	Update(ctx context.Context, userID string, upd service.MappingUpdate) (*model.Mapping, error)
	Delete(ctx context.Context, userID string) error
	Show(ctx context.Context, userID string) (*model.Mapping, error)
	ShowByEmail(ctx context.Context, email string) (*model.Mapping, error)
	List(ctx context.Context) ([]*model.Mapping, error)
}

// openFunc открывает MappingAdmin; возвращаемая функция освобождает ресурсы.
type openFunc func(ctx context.Context) (MappingAdmin, func(), error)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reportingctl",
		Short:         "Администрирование Reporting Module",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMappingCommand(openMappingService, os.Stdout))
	return cmd
}

// openMappingService подключается к PostgreSQL и создаёт MappingService.
func openMappingService(ctx context.Context) (MappingAdmin, func(), error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, err
	}
	logger := config.SetupLogger(cfg)

	if err := database.Migrate(cfg, logger); err != nil {
		return nil, nil, err
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewMappingService(repository.NewMappingRepository(pool), logger)
	return svc, pool.Close, nil
}

func newMappingCommand(open openFunc, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Маппинги пользователей на коллекции и группы Metabase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newMappingAddCommand(open, out),
		newMappingUpdateCommand(open, out),
		newMappingRemoveCommand(open, out),
		newMappingShowCommand(open, out),
		newMappingListCommand(open, out),
	)
	return cmd
}

// withAdmin открывает MappingAdmin на время выполнения fn.
func withAdmin(cmd *cobra.Command, open openFunc, fn func(ctx context.Context, admin MappingAdmin) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	admin, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, admin)
}

func newMappingAddCommand(open openFunc, out io.Writer) *cobra.Command {
	var m model.Mapping

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Создать маппинг пользователя",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAdmin(cmd, open, func(ctx context.Context, admin MappingAdmin) error {
				if err := admin.Create(ctx, &m); err != nil {
					return err
				}
				return printJSON(out, &m)
			})
		},
	}

	cmd.Flags().StringVar(&m.UserID, "user-id", "", "Идентификатор пользователя (sub из Keycloak)")
	cmd.Flags().StringVar(&m.Email, "email", "", "Email пользователя")
	cmd.Flags().StringVar(&m.PlatformUUID, "platform-uuid", "", "UUID пользователя во внешней платформе")
	cmd.Flags().StringSliceVar(&m.GroupIDs, "groups", nil, "Группы Metabase через запятую")
	cmd.Flags().StringSliceVar(&m.CollectionIDs, "collections", nil, "Коллекции Metabase через запятую")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newMappingUpdateCommand(open openFunc, out io.Writer) *cobra.Command {
	var (
		email, platformUUID   string
		groupIDs, collections []string
	)

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Изменить маппинг; не переданные флаги сохраняют значения",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd service.MappingUpdate
			flags := cmd.Flags()
			if flags.Changed("email") {
				upd.Email = &email
			}
			if flags.Changed("platform-uuid") {
				upd.PlatformUUID = &platformUUID
			}
			if flags.Changed("groups") {
				upd.GroupIDs = &groupIDs
			}
			if flags.Changed("collections") {
				upd.CollectionIDs = &collections
			}

			return withAdmin(cmd, open, func(ctx context.Context, admin MappingAdmin) error {
				m, err := admin.Update(ctx, args[0], upd)
				if err != nil {
					return err
				}
				return printJSON(out, m)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email пользователя")
	cmd.Flags().StringVar(&platformUUID, "platform-uuid", "", "UUID во внешней платформе; пустое значение очищает")
	cmd.Flags().StringSliceVar(&groupIDs, "groups", nil, "Группы Metabase через запятую")
	cmd.Flags().StringSliceVar(&collections, "collections", nil, "Коллекции Metabase через запятую")
	return cmd
}

func newMappingRemoveCommand(open openFunc, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Удалить маппинг",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, open, func(ctx context.Context, admin MappingAdmin) error {
				if err := admin.Delete(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(out, "маппинг %s удалён\n", args[0])
				return err
			})
		},
	}
}

func newMappingShowCommand(open openFunc, out io.Writer) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "show [user-id]",
		Short: "Показать маппинг по user-id или --email",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (email == "") {
				return errors.New("укажите user-id или --email")
			}
			return withAdmin(cmd, open, func(ctx context.Context, admin MappingAdmin) error {
				var (
					m   *model.Mapping
					err error
				)
				if email != "" {
					m, err = admin.ShowByEmail(ctx, email)
				} else {
					m, err = admin.Show(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return printJSON(out, m)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Искать маппинг по email")
	return cmd
}

func newMappingListCommand(open openFunc, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Список всех маппингов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAdmin(cmd, open, func(ctx context.Context, admin MappingAdmin) error {
				items, err := admin.List(ctx)
				if err != nil {
					return err
				}
				if items == nil {
					items = []*model.Mapping{}
				}
				return printJSON(out, items)
			})
		},
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
