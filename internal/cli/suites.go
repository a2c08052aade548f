package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"siteprobe/internal/suite"
)

var suiteDescriptions = map[suite.Name]string{
	suite.Accessibility: "правила доступности по DOM страницы",
	suite.SEO:           "мета-теги, заголовки, разметка schema.org, sitemap и robots.txt",
	suite.Performance:   "Lighthouse через PageSpeed Insights",
	suite.Visual:        "сравнение снимка DOM с эталоном",
	suite.Language:      "орфография и грамматика через LanguageTool",
	suite.Headers:       "заголовки безопасности и кэширования",
}

func newSuitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suites",
		Short: "Показать доступные наборы проверок",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := color.New(color.FgCyan).SprintFunc()
			for _, n := range suite.Known {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", name(string(n)), suiteDescriptions[n])
			}
			return nil
		},
	}
}
