// Package cli - команды siteprobe.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"siteprobe/internal/notify"
	"siteprobe/internal/runner"
)

var (
	version = "dev"
	commit  = "none"
)

// коды выхода процесса
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitDelivery = 2
)

func newRootCmd(runnerOpts ...runner.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "siteprobe",
		Short:         "Аудит качества сайта",
		Long:          "SiteProbe находит страницы сайта, прогоняет по ним наборы проверок и собирает единый отчет.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", "", "путь к siteprobe.yaml")
	cmd.PersistentFlags().String("log-level", "", "уровень логирования (debug, info, warn, error)")

	cmd.AddCommand(newRunCmd(runnerOpts))
	cmd.AddCommand(newSuitesCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// NewRootCmdForTest - корневая команда с подмененными звеньями конвейера
func NewRootCmdForTest(runnerOpts ...runner.Option) *cobra.Command {
	return newRootCmd(runnerOpts...)
}

// Execute - запускает CLI и возвращает код выхода
func Execute(args []string, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(stderr, "Ошибка: %v\n", err)
	}
	return ExitCode(err)
}

// ExitCode - код выхода для ошибки команды
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var de *notify.DeliveryError
	if errors.As(err, &de) {
		return ExitDelivery
	}
	return ExitFailure
}
