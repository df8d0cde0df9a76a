/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

// Command vocaline is a small CLI around the Vocaline SDK: fetch and inspect
// capability tokens, list audio devices, and tail the push notification
// channel.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	vocaline "github.com/vocaline/vocaline-go-sdk"
	"github.com/vocaline/vocaline-go-sdk/audio"
	"github.com/vocaline/vocaline-go-sdk/credential"
	"github.com/vocaline/vocaline-go-sdk/notify"
	"github.com/vocaline/vocaline-go-sdk/vocalinesdk"
)

const version = "0.1.0"

var (
	verbose     bool
	accessToken string
	baseURL     string
	clientName  string
	notifyURL   string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "vocaline",
		Short: "Vocaline SDK Go CLI",
		Long:  "A command-line interface for the Vocaline SDK Go library",
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&accessToken, "access-token", "", "Access token for authentication (default: VOCALINE_ACCESS_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (default: VOCALINE_BASE_URL)")

	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(devicesCmd())
	rootCmd.AddCommand(listenCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newClient builds a Vocaline client from flags and environment.
func newClient() (*vocaline.VocalineClient, error) {
	token := accessToken
	if token == "" {
		token = os.Getenv("VOCALINE_ACCESS_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("no access token: set --access-token or VOCALINE_ACCESS_TOKEN")
	}

	config := vocalinesdk.DefaultConfig()
	config.Logger = newLogger()

	if baseURL == "" {
		baseURL = os.Getenv("VOCALINE_BASE_URL")
	}
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return vocaline.NewClient(token, config)
}

// newLogger builds the console logger handed to the SDK core. zerolog's
// Printf satisfies the core's Logger interface through the pointer receiver.
func newLogger() *zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	l := zerolog.New(w).With().Timestamp().Logger()
	if !verbose {
		l = l.Level(zerolog.WarnLevel)
	}
	return &l
}

func tokenCmd() *cobra.Command {
	var (
		allowOutgoing bool
		allowIncoming bool
		introspect    bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Fetch a capability token",
		Long:  "Fetch a capability token for the requested capabilities and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			if clientName == "" {
				clientName = os.Getenv("VOCALINE_CLIENT_NAME")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			token, err := client.Credentials().Fetch(ctx, credential.Params{
				AllowOutgoing: allowOutgoing,
				AllowIncoming: allowIncoming,
				ClientName:    clientName,
			})
			if err != nil {
				return fmt.Errorf("token fetch failed: %w", err)
			}

			fmt.Println(token)

			if introspect {
				info, err := credential.Introspect(token)
				if err != nil {
					return fmt.Errorf("token introspection failed: %w", err)
				}
				fmt.Printf("\nAccount ID: %s\n", info.AccountID)
				fmt.Printf("Identity: %s\n", info.Identity)
				fmt.Printf("Expires At: %s\n", info.ExpiresAt.Format(time.RFC3339))
				if credential.ExpiresSoon(info, 5*time.Minute) {
					fmt.Println("Warning: token expires within 5 minutes")
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowOutgoing, "outgoing", true, "Request outgoing-call capability")
	cmd.Flags().BoolVar(&allowIncoming, "incoming", false, "Request incoming-call capability")
	cmd.Flags().StringVar(&clientName, "client-name", "", "Incoming-call client name (default: VOCALINE_CLIENT_NAME)")
	cmd.Flags().BoolVar(&introspect, "introspect", false, "Decode and print the token claims")

	return cmd
}

func devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		Long:  "List all available audio input and output devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			dm := audio.NewDeviceManager()
			if err := dm.Initialize(); err != nil {
				return fmt.Errorf("audio subsystem initialization failed: %w", err)
			}
			defer dm.Close()

			fmt.Println("Available Audio Devices:")
			for _, device := range dm.Devices() {
				marker := ""
				if device.IsDefault {
					marker = " (Default)"
				}

				capabilities := ""
				switch {
				case device.IsInput && device.IsOutput:
					capabilities = "Input/Output"
				case device.IsInput:
					capabilities = "Input"
				case device.IsOutput:
					capabilities = "Output"
				}

				fmt.Printf("  %d: %s%s - %s (%.0f Hz)\n",
					device.ID, device.Name, marker, capabilities, device.DefaultSampleRate)
			}

			outputDevices := dm.OutputDevices()
			if len(outputDevices) > 0 {
				fmt.Println("\nOutput Devices:")
				for _, device := range outputDevices {
					marker := ""
					if device.IsDefault {
						marker = " (Default)"
					}
					fmt.Printf("  %d: %s%s - %d channels\n",
						device.ID, device.Name, marker, device.MaxOutputChannels)
				}
			}

			return nil
		},
	}

	return cmd
}

func listenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Tail the push notification channel",
		Long:  "Connect to the push notification channel and print events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			n := client.Notify()

			if notifyURL == "" {
				notifyURL = os.Getenv("VOCALINE_NOTIFY_URL")
			}
			if notifyURL != "" {
				n.SetWebSocketURL(notifyURL)
			}

			n.On("*", func(ev *notify.Event) {
				ts := time.UnixMilli(ev.Timestamp).Format(time.RFC3339)
				fmt.Printf("[%s] %s %v\n", ts, ev.EventType, ev.Data)
			})

			if err := n.Connect(); err != nil {
				return fmt.Errorf("notification channel connect failed: %w", err)
			}
			defer n.Disconnect()

			fmt.Println("Listening for notifications. Press Ctrl+C to stop.")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			return nil
		},
	}

	cmd.Flags().StringVar(&notifyURL, "notify-url", "", "Notification channel URL (default: VOCALINE_NOTIFY_URL)")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vocaline %s\n", version)
		},
	}
}
