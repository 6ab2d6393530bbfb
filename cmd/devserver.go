package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/feedback-coach/internal/devserver"
)

var (
	devPort     int
	devAllowAll bool
	devSeed     []string
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory Feedback Coach backend for local trials",
	Long: `Serves the document API from memory on 127.0.0.1. Data is lost when the
server stops. Use --seed email:password[:first[:last]] to create accounts
up front.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := devserver.New(devserver.Config{Port: devPort, AllowAll: devAllowAll})
		for _, seed := range devSeed {
			email, password, first, last, err := parseSeed(seed)
			if err != nil {
				return err
			}
			if _, err := srv.CreateUser(email, password, first, last); err != nil {
				return fmt.Errorf("seeding %s: %w", email, err)
			}
			fmt.Printf("Created user %s\n", email)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()
		fmt.Printf("Development backend on http://127.0.0.1:%d (Ctrl-C to stop)\n", devPort)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

// parseSeed splits "email:password[:first[:last]]". Names default to
// "Test User".
func parseSeed(seed string) (email, password, first, last string, err error) {
	parts := strings.SplitN(seed, ":", 4)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", "", fmt.Errorf("invalid seed %q: want email:password[:first[:last]]", seed)
	}
	first, last = "Test", "User"
	if len(parts) > 2 && parts[2] != "" {
		first = parts[2]
	}
	if len(parts) > 3 && parts[3] != "" {
		last = parts[3]
	}
	return parts[0], parts[1], first, last, nil
}

func init() {
	devserverCmd.Flags().IntVar(&devPort, "port", 8000, "port to listen on")
	devserverCmd.Flags().BoolVar(&devAllowAll, "allow-all-origins", false, "allow CORS requests from any origin")
	devserverCmd.Flags().StringArrayVar(&devSeed, "seed", nil, "create a user: email:password[:first[:last]] (repeatable)")
	rootCmd.AddCommand(devserverCmd)
}
