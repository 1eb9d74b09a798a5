package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/klynnlabs/laundry-core/internal/order"
	"github.com/klynnlabs/laundry-core/supabase/client"
)

var follow bool

// track: live view of the user's orders over the realtime change feed.
func trackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Track your orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}

			db := sb.WithSession(sess.AccessToken)
			store := order.NewSupabaseStore(db)

			if !follow {
				orders, err := store.ListByUser(cmd.Context(), sess.UserID)
				if err != nil {
					return err
				}
				printOrders(orders)
				return nil
			}

			rt := client.NewRealtime(sb.BaseURL(), sb.APIKey())
			tracker := order.NewTracker(store, order.NewSupabaseFeed(rt), log)
			tracker.OnError(func(err error) {
				log.WithError(err).Warn("order refresh failed")
			})

			if err := tracker.Start(cmd.Context(), sess.UserID); err != nil {
				return err
			}
			defer func() {
				_ = tracker.Stop(cmd.Context())
				_ = rt.Disconnect()
			}()

			printOrders(tracker.Orders())
			fmt.Println("watching for updates, ctrl-c to stop")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			stop := make(chan struct{})
			go reprintOnChange(tracker, stop)
			defer close(stop)

			select {
			case <-sig:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "keep watching for status changes")
	return cmd
}

// reprintOnChange polls the tracker cache and reprints the list whenever a
// refetch changed it. The tracker owns correctness; this is just display.
func reprintOnChange(tracker *order.Tracker, stop <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	last := fingerprint(tracker.Orders())
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			orders := tracker.Orders()
			if fp := fingerprint(orders); fp != last {
				last = fp
				fmt.Println("---")
				printOrders(orders)
			}
		}
	}
}

func fingerprint(orders []order.Order) string {
	var b strings.Builder
	for _, o := range orders {
		b.WriteString(o.ID)
		b.WriteByte('|')
		b.WriteString(o.Status)
		b.WriteByte('\n')
	}
	return b.String()
}

func printOrders(orders []order.Order) {
	if len(orders) == 0 {
		fmt.Println("no orders yet")
		return
	}
	for _, o := range orders {
		printOrder(o)
	}
}
