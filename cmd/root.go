// Package cmd implements the kara command-line interface.
package cmd

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/kara-engine/kara/color"
	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/key"
	"github.com/kara-engine/kara/log"
	"github.com/kara-engine/kara/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (panic, fatal, error, warn, info, debug, trace)")
	lo.Must0(viper.BindPFlag(key.LogsLevel, rootCmd.PersistentFlags().Lookup("log-level")))
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"panic", "fatal", "error", "warn", "info", "debug", "trace"}, cobra.ShellCompDirectiveNoFileComp
	}))
}

// rootCmd is the entry point of the kara command line.
var rootCmd = &cobra.Command{
	Use:   constant.Kara,
	Short: "Karaoke night player and blind-test quiz engine",
	Long: constant.Logo + "\n\n" +
		style.New().Italic(true).Foreground(color.HiPurple).Render("    - Karaoke night player and blind-test quiz engine"),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		handleErr(log.Setup())
	},
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}
		_ = cmd.Help()
	},
}

// Execute runs the command line.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", style.Fail, strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
