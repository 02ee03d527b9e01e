package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/kara-engine/kara/color"
	"github.com/kara-engine/kara/playlist"
	"github.com/kara-engine/kara/quiz"
	"github.com/kara-engine/kara/store"
	"github.com/kara-engine/kara/style"
	"github.com/kara-engine/kara/util"
	"github.com/kara-engine/kara/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(quizCmd)
	quizCmd.AddCommand(quizSchemaCmd, quizPlaylistsCmd, quizScoresCmd)

	quizSchemaCmd.Flags().BoolP("defaults", "d", false, "Print the default settings instead of the schema")
	quizScoresCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON string")

	quizPlaylistsCmd.SetOut(os.Stdout)
	quizScoresCmd.SetOut(os.Stdout)
}

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Inspect quiz settings, playlists and scores",
}

var quizSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the game settings",
	Run: func(cmd *cobra.Command, args []string) {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		if lo.Must(cmd.Flags().GetBool("defaults")) {
			handleErr(encoder.Encode(quiz.DefaultSettings()))
			return
		}

		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		handleErr(encoder.Encode(reflector.Reflect(&quiz.Settings{})))
	},
}

var quizPlaylistsCmd = &cobra.Command{
	Use:   "playlists",
	Short: "List the playlists games can draw from",
	Run: func(cmd *cobra.Command, args []string) {
		library := playlist.NewLibrary(where.Playlists())
		names, err := library.Names()
		handleErr(err)

		for _, name := range names {
			songs, err := library.Songs(context.Background(), name)
			if err != nil {
				cmd.Printf("%s %s\n", style.Fg(color.Purple)(name), style.Fg(color.Red)(err.Error()))
				continue
			}
			cmd.Printf("%s %s\n", style.Fg(color.Purple)(name), style.Faint(util.Quantify(len(songs), "song", "songs")))
		}
	},
}

var quizScoresCmd = &cobra.Command{
	Use:   "scores [game]",
	Short: "Print the leaderboard of a game",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := store.Open()
		handleErr(err)
		defer util.Ignore(st.Close)

		totals, err := st.TotalScores(context.Background(), args[0])
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(os.Stdout).Encode(totals))
			return
		}

		for i, t := range totals {
			cmd.Printf("%s %s %s\n",
				style.Faint(fmt.Sprintf("%2d.", i+1)),
				style.Bold(t.Login),
				style.Fg(color.Yellow)(util.Quantify(t.Points, "point", "points")),
			)
		}
	},
}
