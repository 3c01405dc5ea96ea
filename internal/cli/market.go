package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"reciclo/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (r *runner) marketCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "market", Short: "Trade recycling and reputation coins"}
	cmd.AddCommand(
		r.marketOffersCommand(),
		r.marketBalanceCommand(),
		r.marketSellCommand(),
		r.marketGiftCommand(),
		r.marketIDCommand("buy ID", "Buy an open offer", r.buy),
		r.marketIDCommand("cancel ID", "Cancel one of your offers", r.cancelOffer),
		r.marketExchangesCommand(),
		r.marketExchangeCommand(),
		r.marketIDCommand("accept ID", "Accept an exchange request addressed to you", r.accept),
		r.marketIDCommand("reject ID", "Reject an exchange request addressed to you", r.reject),
		r.marketIDCommand("withdraw ID", "Withdraw an exchange request you made", r.withdraw),
		r.marketUsersCommand(),
		r.marketTransactionsCommand(),
	)
	return cmd
}

func (r *runner) buy(ctx context.Context, id int64) bool {
	return r.app.Marketplace.PurchaseOffer(ctx, id)
}

func (r *runner) cancelOffer(ctx context.Context, id int64) bool {
	return r.app.Marketplace.CancelOffer(ctx, id)
}

func (r *runner) accept(ctx context.Context, id int64) bool {
	return r.app.Marketplace.RespondToExchangeRequest(ctx, id, true)
}

func (r *runner) reject(ctx context.Context, id int64) bool {
	return r.app.Marketplace.RespondToExchangeRequest(ctx, id, false)
}

func (r *runner) withdraw(ctx context.Context, id int64) bool {
	return r.app.Marketplace.CancelExchangeRequest(ctx, id)
}

func (r *runner) marketIDCommand(use, short string, action func(context.Context, int64) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return result(action(cmd.Context(), id))
		},
	}
}

func (r *runner) marketOffersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "offers",
		Short: "List open offers and your own offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !r.app.Marketplace.FetchData(cmd.Context()) {
				return ErrFailed
			}
			data := r.app.Marketplace.Data()
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Open offers:")
			printOffers(w, data.AvailableOffers)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Your offers:")
			printOffers(w, data.MyOffers)
			return nil
		},
	}
}

func (r *runner) marketBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show your coin balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !r.app.Marketplace.FetchUserBalance(cmd.Context()) {
				r.app.Notifier.Error("Could not load your balance.")
				return ErrFailed
			}
			printBalance(cmd.OutOrStdout(), r.app.Marketplace.Balance())
			return nil
		},
	}
}

// resolveUser finds the id of the user with exactly this name.
func (r *runner) resolveUser(ctx context.Context, name string) (int64, error) {
	for _, u := range r.app.Marketplace.SearchUsers(ctx, name) {
		if strings.EqualFold(u.Username, name) {
			return u.ID, nil
		}
	}
	return 0, fmt.Errorf("no user named %q", name)
}

// offer creates a sale or gift. The balance is refreshed first because offers are checked
// against it before anything is sent.
func (r *runner) offer(cmd *cobra.Command, o models.NewOffer, to string) error {
	ctx := cmd.Context()
	if to != "" {
		id, err := r.resolveUser(ctx, to)
		if err != nil {
			return err
		}
		o.SpecificUserID = &id
	}
	r.app.Marketplace.FetchUserBalance(ctx)
	if !r.app.Marketplace.CreateOffer(ctx, o) {
		return ErrFailed
	}
	printBalance(cmd.OutOrStdout(), r.app.Marketplace.Balance())
	return nil
}

func (r *runner) marketSellCommand() *cobra.Command {
	o := models.NewOffer{OfferType: models.OfferSale}
	var pricePer, to string
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Offer coins for sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := decimal.NewFromString(pricePer)
			if err != nil {
				return fmt.Errorf("invalid price %q", pricePer)
			}
			o.PricePerCoin = p
			return r.offer(cmd, o, to)
		},
	}
	cmd.Flags().StringVar(&o.CoinType, "coin", models.CoinRecycling, "coin type: recycling or reputation")
	cmd.Flags().IntVar(&o.Amount, "amount", 0, "number of coins")
	cmd.Flags().StringVar(&pricePer, "price", "", "price per coin")
	cmd.Flags().StringVar(&to, "to", "", "reserve the offer for this user")
	cmd.MarkFlagRequired("price")
	return cmd
}

func (r *runner) marketGiftCommand() *cobra.Command {
	o := models.NewOffer{OfferType: models.OfferGift}
	var to string
	cmd := &cobra.Command{
		Use:   "gift",
		Short: "Give coins away, to anyone or to one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.offer(cmd, o, to)
		},
	}
	cmd.Flags().StringVar(&o.CoinType, "coin", models.CoinRecycling, "coin type: recycling or reputation")
	cmd.Flags().IntVar(&o.Amount, "amount", 0, "number of coins")
	cmd.Flags().StringVar(&to, "to", "", "reserve the gift for this user")
	return cmd
}

func (r *runner) marketExchangesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exchanges",
		Short: "List the exchange requests you made or received",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !r.app.Marketplace.FetchData(cmd.Context()) {
				return ErrFailed
			}
			printExchanges(cmd.OutOrStdout(), r.app.Marketplace.Data().ExchangeRequests)
			return nil
		},
	}
}

func (r *runner) marketExchangeCommand() *cobra.Command {
	var (
		req models.NewExchangeRequest
		to  string
	)
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Propose a coin swap to another user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := r.resolveUser(ctx, to)
			if err != nil {
				return err
			}
			req.ReceiverID = id
			r.app.Marketplace.FetchUserBalance(ctx)
			return result(r.app.Marketplace.CreateExchangeRequest(ctx, req))
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "user to exchange with")
	cmd.Flags().IntVar(&req.OfferRecyclingCoins, "offer-recycling", 0, "recycling coins you give")
	cmd.Flags().IntVar(&req.OfferReputationCoins, "offer-reputation", 0, "reputation coins you give")
	cmd.Flags().IntVar(&req.RequestRecyclingCoins, "request-recycling", 0, "recycling coins you ask for")
	cmd.Flags().IntVar(&req.RequestReputationCoins, "request-reputation", 0, "reputation coins you ask for")
	cmd.Flags().StringVar(&req.Message, "message", "", "note for the other user")
	cmd.MarkFlagRequired("to")
	return cmd
}

func (r *runner) marketUsersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "users [term]",
		Short: "Search users by name",
		Long: `Search users by name. Without a term, search terms are read from standard input one per
line and searched as you type, after a short pause.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				printUsers(cmd.OutOrStdout(), r.app.Marketplace.SearchUsers(cmd.Context(), args[0]))
				return nil
			}
			return r.liveUserSearch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// liveUserSearch feeds every line of in to a debounced search and prints the results of the
// searches that run.
func (r *runner) liveUserSearch(ctx context.Context, in io.Reader, out io.Writer) error {
	var mu sync.Mutex
	search := r.app.Marketplace.NewUserSearch(ctx, r.app.Config.SearchDebounce, func(term string, users []models.UserSummary) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "Results for %q:\n", term)
		printUsers(out, users)
	})
	defer search.Stop()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		search.Type(strings.TrimSpace(scanner.Text()))
	}
	search.Flush()
	return scanner.Err()
}

func (r *runner) marketTransactionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transactions",
		Short: "Show your coin transaction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs := r.app.Marketplace.Transactions(cmd.Context())
			if txs == nil {
				return ErrFailed
			}
			printTransactions(cmd.OutOrStdout(), txs)
			return nil
		},
	}
}
