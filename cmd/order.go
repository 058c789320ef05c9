package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/grubslash/client/api"
	"github.com/grubslash/client/order"
	"github.com/grubslash/client/view"
	"github.com/grubslash/client/watch"
)

var (
	orderAddress string
	orderNotes   string
	orderPayment string
	orderYes     bool
)

var orderCmd = &cobra.Command{
	Use:   "order <group-link>",
	Short: "Validate a group order link and submit it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.client.Startup(ctx); err != nil {
			return err
		}
		if _, ok := e.client.Session(); !ok {
			return errors.New("not logged in, run `grubslash login` first")
		}

		if banner := view.Banner(e.machine.Service()); banner != "" {
			fmt.Println(banner)
		}

		// Validation lands in the machine asynchronously; watch for it.
		validated := make(chan struct{}, 1)
		watcher := watch.NewStateWatcher(e.machine)
		watcher.SetOnChange(func(c order.Change) {
			if c.Kind == order.ChangeValidation {
				select {
				case validated <- struct{}{}:
				default:
				}
			}
		})
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()

		e.client.SetLinkInput(args[0])
		e.debounce.Flush()

		select {
		case <-validated:
		case <-time.After(30 * time.Second):
			return errors.New("link validation timed out")
		case <-ctx.Done():
			return ctx.Err()
		}

		v := e.machine.Validation()
		fmt.Println(view.QuoteCard(v, cfg.Policy))
		if v.Failed() {
			return errors.New("link did not validate")
		}

		if !orderYes {
			answer, err := readLine("Submit this order? [y/N] ")
			if err != nil {
				return err
			}
			if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		sess, _ := e.client.Session()
		customer := &api.CustomerData{
			Username:      sess.User.Username,
			Address:       orderAddress,
			DeliveryNotes: orderNotes,
			PaymentMethod: orderPayment,
		}
		id, err := e.client.Submit(ctx, customer)
		if err != nil {
			return err
		}

		fmt.Printf("Order %s submitted. Run `grubslash chat` to talk to your agent.\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.Flags().StringVar(&orderAddress, "address", "", "Delivery address")
	orderCmd.Flags().StringVar(&orderNotes, "notes", "", "Delivery notes")
	orderCmd.Flags().StringVar(&orderPayment, "payment", "", "Payment method")
	orderCmd.Flags().BoolVarP(&orderYes, "yes", "y", false, "Submit without confirmation")
}
