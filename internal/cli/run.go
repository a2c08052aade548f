package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"siteprobe/internal/config"
	"siteprobe/internal/logger"
	"siteprobe/internal/runner"
)

func newRunCmd(runnerOpts []runner.Option) *cobra.Command {
	var (
		suites         []string
		outDir         string
		email          bool
		jsonOutput     bool
		concurrency    int
		noProgress     bool
		updateBaseline bool
	)

	cmd := &cobra.Command{
		Use:   "run [site]",
		Short: "Прогнать наборы проверок по сайту",
		Long:  "Находит страницы (sitemap.xml, иначе обход ссылок), запускает выбранные наборы и сохраняет отчет.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				cfg.Site = runner.NormalizeSite(args[0])
			}
			flags := cmd.Flags()
			if flags.Changed("suites") {
				cfg.Suites = suites
			}
			if flags.Changed("out") {
				cfg.OutputDir = outDir
			}
			if flags.Changed("email") {
				cfg.Email.Enabled = email
			}
			if flags.Changed("concurrency") {
				cfg.Concurrency = concurrency
			}
			if flags.Changed("update-baseline") {
				cfg.Visual.UpdateBaseline = updateBaseline
			}
			if level, _ := flags.GetString("log-level"); level != "" {
				cfg.LogLevel = level
			}
			if cfg.Site == "" {
				return errors.New("не указан сайт: передайте аргумент или задайте site в конфигурации")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("некорректная конфигурация: %w", err)
			}

			log, err := logger.New(logger.Config{Level: cfg.LogLevel})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			opts := append([]runner.Option{}, runnerOpts...)
			if !noProgress && !jsonOutput {
				opts = append(opts, runner.WithProgress(cmd.ErrOrStderr()))
			}
			r, err := runner.New(cfg, log, opts...)
			if err != nil {
				return err
			}

			rep, runErr := r.Run(cmd.Context(), cfg.Site, cfg.Suites)
			if rep == nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := rep.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			} else {
				rep.Print(out, out == os.Stdout && !color.NoColor)
			}
			return runErr
		},
	}

	cmd.Flags().StringSliceVar(&suites, "suites", nil, "наборы через запятую (по умолчанию все)")
	cmd.Flags().StringVar(&outDir, "out", "", "каталог для JSON-отчета")
	cmd.Flags().BoolVar(&email, "email", false, "отправить отчет по почте")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "вывести отчет в JSON")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "число одновременно выполняемых проверок")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "не показывать прогресс-бар")
	cmd.Flags().BoolVar(&updateBaseline, "update-baseline", false, "перезаписать эталоны визуальных снимков")
	return cmd
}
