package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/kara-engine/kara/color"
	"github.com/kara-engine/kara/key"
	"github.com/kara-engine/kara/style"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.SetOut(os.Stdout)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the player binary is available",
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()
		cmd.Printf("%s %s found\n", style.Success, viper.GetString(key.PlayerBinary))
	},
}

// CheckDependencies exits when the configured mpv binary is not in PATH.
func CheckDependencies() {
	binary := viper.GetString(key.PlayerBinary)
	if _, err := exec.LookPath(binary); err != nil {
		printMissingDependencyError(binary)
		os.Exit(1)
	}
}

func printMissingDependencyError(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case "darwin":
		installCmd = "brew install mpv"
	case "linux":
		installCmd = "sudo apt install mpv"
	case "windows":
		installCmd = "scoop install mpv"
	}

	title := style.New().Bold(true).Foreground(color.HiRed).Render(fmt.Sprintf("%s Missing dependency", style.Fail))
	body := fmt.Sprintf("'%s' was not found in your PATH.", dep)

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(color.Cyan).Bold(true).Render(installCmd))
	}

	fmt.Println(style.Box(color.HiRed, lipgloss.JoinVertical(lipgloss.Left, title, "", body, suggestion)))
}
