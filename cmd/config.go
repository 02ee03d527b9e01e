package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/kara-engine/kara/color"
	"github.com/kara-engine/kara/config"
	"github.com/kara-engine/kara/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func completionConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	keys := lo.Without(lo.Keys(config.Default), args...)
	slices.Sort(keys)
	return keys, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInfoCmd, configGetCmd, configSetCmd, configResetCmd, configWriteCmd, configPathCmd)

	configInfoCmd.Flags().BoolP("json", "j", false, "Print the fields as JSON")
	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")
	configWriteCmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the player, quiz and server settings",
}

var configInfoCmd = &cobra.Command{
	Use:               "info [key...]",
	Short:             "Describe configuration keys, all of them by default",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		fields := lo.Values(config.Default)
		if len(args) > 0 {
			fields = lo.Map(args, func(k string, _ int) config.Field {
				f, err := config.Lookup(k)
				handleErr(err)
				return f
			})
		}
		slices.SortFunc(fields, func(a, b config.Field) int { return strings.Compare(a.Key, b.Key) })

		if lo.Must(cmd.Flags().GetBool("json")) {
			lo.Must0(json.NewEncoder(cmd.OutOrStdout()).Encode(lo.ToSlicePtr(fields)))
			return
		}

		pretty := lo.Map(fields, func(f config.Field, _ int) string { return f.Pretty() })
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(pretty, "\n\n"))
	},
}

var configGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Print the current value of a key",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		_, err := config.Lookup(args[0])
		handleErr(err)
		fmt.Fprintln(cmd.OutOrStdout(), viper.Get(args[0]))
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set <key> <value...>",
	Short:             "Change a key and save the configuration file",
	Example:           "  kara config set quiz.guess_time 20\n  kara config set media.dirs /srv/medias,/mnt/karaokes",
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		v, err := config.Set(args[0], args[1:]...)
		handleErr(err)
		handleErr(config.Save(true))

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n",
			style.Success,
			style.Fg(color.Purple)(args[0]),
			style.Fg(color.Yellow)(fmt.Sprint(v)),
		)
	},
}

var configResetCmd = &cobra.Command{
	Use:               "reset [key...]",
	Short:             "Restore keys to their defaults",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		all := lo.Must(cmd.Flags().GetBool("all"))
		if all == (len(args) > 0) {
			handleErr(fmt.Errorf("give either keys or --all"))
		}

		handleErr(config.Restore(args...))
		handleErr(config.Save(true))

		if all {
			fmt.Fprintf(cmd.OutOrStdout(), "%s every key reset\n", style.Success)
			return
		}
		for _, k := range args {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n",
				style.Success,
				style.Fg(color.Purple)(k),
				style.Fg(color.Yellow)(fmt.Sprint(config.Default[k].Value)),
			)
		}
	},
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the current configuration to the configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(config.Save(lo.Must(cmd.Flags().GetBool("force"))))
		fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", style.Success, config.Path())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where the configuration file lives",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.Path())
	},
}
