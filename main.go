package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voxbar/internal/bridge"
	"voxbar/internal/channel"
	"voxbar/internal/config"
	"voxbar/internal/controller"
	"voxbar/internal/state"
)

var version = "dev"

func exitIfError(err error, code int) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(code)
	}
}

// sendToken delivers a command token through the running controller,
// falling back to a direct command-file write when none is running.
func sendToken(token string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	client := bridge.NewClient(cfg.Bridge.SocketPath)
	ctx := context.Background()
	if client.IsRunning(ctx) {
		return client.SendCommand(ctx, token)
	}
	return channel.New(cfg.Channel.StatusFile, cfg.Channel.CommandFile).Send(token)
}

var rootCmd = &cobra.Command{
	Use:   "voxbar",
	Short: "menu-bar controller for the voice service",
	Long: `voxbar is the menu-bar controller for a voice-control system.

start the controller with 'voxbar run', then use 'toggle', 'mode',
'start', 'stop' and 'addons' to drive the voice service.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the menu-bar controller",
	Long:  `starts the controller in the foreground: tray icon, status polling, settings bridge`,
	Run: func(cmd *cobra.Command, args []string) {
		exitIfError(config.EnsureDirectories(), 1)
		exitIfError(config.InitConfigFile(), 1)

		cfg, err := config.GetConfig()
		exitIfError(err, 1)

		exitIfError(controller.New(cfg).Run(), 1)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "toggle listening",
	Run: func(cmd *cobra.Command, args []string) {
		exitIfError(sendToken(channel.CmdToggle), 1)
		fmt.Println("Toggled listening")
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode <general|music|claude>",
	Short: "switch the active mode",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, ok := state.ParseMode(args[0])
		if !ok {
			exitIfError(fmt.Errorf("unknown mode %q", args[0]), 1)
		}
		exitIfError(sendToken(channel.ModeCommand(m)), 1)
		fmt.Println("Switched mode to", m)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start the voice service",
	Run: func(cmd *cobra.Command, args []string) {
		exitIfError(sendToken(channel.CmdStart), 1)
		fmt.Println("Service start requested")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "stop the voice service",
	Run: func(cmd *cobra.Command, args []string) {
		exitIfError(sendToken(channel.CmdStop), 1)
		fmt.Println("Service stop requested")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "show the controller's current state",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.GetConfig()
		exitIfError(err, 1)

		client := bridge.NewClient(cfg.Bridge.SocketPath)
		ctx := context.Background()
		if !client.IsRunning(ctx) {
			fmt.Println("Controller is not running")
			os.Exit(1)
		}

		s, err := client.State(ctx)
		exitIfError(err, 1)

		out, err := json.MarshalIndent(s, "", "  ")
		exitIfError(err, 1)
		fmt.Println(string(out))
	},
}

var addonsCmd = &cobra.Command{
	Use:   "addons",
	Short: "manage command addons",
}

func bridgeClient() (*bridge.Client, context.Context) {
	cfg, err := config.GetConfig()
	exitIfError(err, 1)

	client := bridge.NewClient(cfg.Bridge.SocketPath)
	ctx := context.Background()
	if !client.IsRunning(ctx) {
		fmt.Fprintln(os.Stderr, "Error: controller is not running")
		os.Exit(1)
	}
	return client, ctx
}

var addonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "list installed addons",
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := bridgeClient()
		list, err := client.ListAddons(ctx)
		exitIfError(err, 1)

		for _, d := range list {
			enabled := " "
			if d.Enabled {
				enabled = "*"
			}
			fmt.Printf("[%s] %-20s %s %s\n", enabled, d.Name, d.Version, d.Description)
		}
	},
}

var addonsImportCmd = &cobra.Command{
	Use:   "import <path-or-url>",
	Short: "import an addon from a zip, directory, or repository url",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := bridgeClient()

		src := args[0]
		var err error
		var name string
		if _, statErr := os.Stat(src); statErr == nil {
			d, importErr := client.ImportLocalAddon(ctx, src)
			name, err = d.Name, importErr
		} else {
			d, importErr := client.ImportRemoteAddon(ctx, src)
			name, err = d.Name, importErr
		}
		exitIfError(err, 1)
		fmt.Println("Installed addon", name)
	},
}

var addonsExportCmd = &cobra.Command{
	Use:   "export <name> <dest.zip>",
	Short: "export an addon to a zip file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := bridgeClient()
		exitIfError(client.ExportAddon(ctx, args[0], args[1]), 1)
		fmt.Println("Exported addon", args[0], "to", args[1])
	},
}

var addonsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "remove an addon (files are preserved on disk)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := bridgeClient()
		exitIfError(client.RemoveAddon(ctx, args[0]), 1)
		fmt.Println("Removed addon", args[0])
	},
}

var addonsEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "enable an addon",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := bridgeClient()
		exitIfError(client.SetAddonEnabled(ctx, args[0], true), 1)
		fmt.Println("Enabled addon", args[0])
	},
}

var addonsDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "disable an addon",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx := bridgeClient()
		exitIfError(client.SetAddonEnabled(ctx, args[0], false), 1)
		fmt.Println("Disabled addon", args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("voxbar", version)
	},
}

func init() {
	addonsCmd.AddCommand(addonsListCmd)
	addonsCmd.AddCommand(addonsImportCmd)
	addonsCmd.AddCommand(addonsExportCmd)
	addonsCmd.AddCommand(addonsRemoveCmd)
	addonsCmd.AddCommand(addonsEnableCmd)
	addonsCmd.AddCommand(addonsDisableCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addonsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
