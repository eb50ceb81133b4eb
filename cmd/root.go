// Package cmd provides the mathbot CLI commands.
//
// Commands:
//   - serve: load the corpus and run the web UI server (default)
//   - version: show version and configuration information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mathbot",
	Short: "MathBot - AI-помощник по математике в браузере",
	Long: `MathBot запускает локальный веб-сервер с чатом: потоковые ответы модели,
иллюстрации к задачам и библиотека задач по главам.

Запуск без аргументов эквивалентен команде serve.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
