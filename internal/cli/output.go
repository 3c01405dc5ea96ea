package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"reciclo/internal/models"
	"reciclo/internal/transform"

	"github.com/shopspring/decimal"
)

func table(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

func username(u *models.UserSummary) string {
	if u == nil || u.Username == "" {
		return transform.DefaultUserName
	}
	return u.Username
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func price(d decimal.Decimal) string {
	if d.IsZero() {
		return "free"
	}
	return d.StringFixed(2)
}

func printUser(w io.Writer, u *models.User) {
	tw := table(w, "FIELD", "VALUE")
	row(tw, "username", u.Username)
	row(tw, "email", u.Email)
	row(tw, "level", u.Level)
	row(tw, "recycling coins", u.RecyclingCoins)
	row(tw, "reputation coins", u.ReputationCoins)
	row(tw, "curator", yesNo(u.IsCurator))
	tw.Flush()
}

func printCards(w io.Writer, cards []transform.ModelCard) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No models.")
		return
	}
	tw := table(w, "ID", "NAME", "AUTHOR", "LIKES", "DOWNLOADS", "PRICE", "LIKED", "SAVED")
	for _, c := range cards {
		row(tw, c.ID, c.Name, c.UserName, c.Likes, c.Downloads, price(c.Price), yesNo(c.IsLiked), yesNo(c.IsSaved))
	}
	tw.Flush()
}

func printModel(w io.Writer, m models.Model3D) {
	tw := table(w, "FIELD", "VALUE")
	row(tw, "id", m.ID)
	row(tw, "name", m.Name)
	row(tw, "description", m.Description)
	row(tw, "author", username(m.User))
	row(tw, "date", m.Date.Format("2006-01-02"))
	row(tw, "likes", m.Likes)
	row(tw, "downloads", m.Downloads)
	row(tw, "price", price(m.Price))
	row(tw, "liked", yesNo(m.IsLiked))
	row(tw, "saved", yesNo(m.IsSaved))
	row(tw, "visible", yesNo(m.IsVisible))
	for _, img := range m.Images {
		row(tw, fmt.Sprintf("image %d", img.ID), img.Image)
	}
	for _, f := range m.Files {
		row(tw, fmt.Sprintf("file %d", f.ID), f.FileName)
	}
	tw.Flush()
}

func printComments(w io.Writer, comments []models.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments yet.")
		return
	}
	for _, c := range comments {
		fmt.Fprintf(w, "%s  %s: %s\n", c.Date.Format("2006-01-02 15:04"), c.User, c.Text)
	}
}

func printDashboard(w io.Writer, d *models.Dashboard) {
	tw := table(w, "FIELD", "VALUE")
	row(tw, "level", d.Level)
	row(tw, "experience", fmt.Sprintf("%d/%d", d.Experience, d.ExperienceForNextLevel))
	row(tw, "recycling coins", d.RecyclingCoins)
	row(tw, "reputation coins", d.ReputationCoins)
	tw.Flush()

	fmt.Fprintln(w)
	tw = table(w, "MONTH", "BOTTLES")
	for _, m := range d.RecyclingData {
		row(tw, m.Month, m.Quantity)
	}
	tw.Flush()

	fmt.Fprintln(w)
	printAchievements(w, d.Achievements)
}

func printAchievements(w io.Writer, achievements []models.Achievement) {
	if len(achievements) == 0 {
		return
	}
	tw := table(w, "", "ACHIEVEMENT", "REWARD", "PROGRESS")
	for _, a := range achievements {
		mark, progress := "[ ]", ""
		if a.Unlocked {
			mark = "[x]"
		} else if p := a.Progress; p != nil {
			progress = fmt.Sprintf("%d/%d %s", p.Current, p.Total, p.Unit)
		}
		row(tw, mark, a.Title, a.RewardOrDefault(), progress)
	}
	tw.Flush()
}

func printOffers(w io.Writer, offers []models.CoinOffer) {
	if len(offers) == 0 {
		fmt.Fprintln(w, "No offers.")
		return
	}
	tw := table(w, "ID", "TYPE", "COIN", "AMOUNT", "PRICE/COIN", "TOTAL", "SELLER", "FOR", "STATUS")
	for _, o := range offers {
		target := "anyone"
		if o.SpecificUser != nil {
			target = o.SpecificUser.Username
		}
		row(tw, o.ID, o.OfferType, o.CoinType, o.Amount, o.PricePerCoin.StringFixed(2), o.TotalPrice.StringFixed(2), username(o.Seller), target, o.Status)
	}
	tw.Flush()
}

func printExchanges(w io.Writer, requests []models.ExchangeRequest) {
	if len(requests) == 0 {
		fmt.Fprintln(w, "No exchange requests.")
		return
	}
	tw := table(w, "ID", "FROM", "TO", "OFFERS", "REQUESTS", "STATUS", "MESSAGE")
	for _, e := range requests {
		row(tw, e.ID, username(e.Requester), username(e.Receiver),
			fmt.Sprintf("%d rec / %d rep", e.OfferRecyclingCoins, e.OfferReputationCoins),
			fmt.Sprintf("%d rec / %d rep", e.RequestRecyclingCoins, e.RequestReputationCoins),
			e.Status, e.Message)
	}
	tw.Flush()
}

func printBalance(w io.Writer, b models.Balance) {
	tw := table(w, "COIN", "BALANCE")
	row(tw, models.CoinRecycling, b.RecyclingCoins)
	row(tw, models.CoinReputation, b.ReputationCoins)
	tw.Flush()
}

func printUsers(w io.Writer, users []models.UserSummary) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return
	}
	tw := table(w, "ID", "USERNAME")
	for _, u := range users {
		row(tw, u.ID, u.Username)
	}
	tw.Flush()
}

func printTransactions(w io.Writer, txs []models.CoinTransaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	tw := table(w, "ID", "DATE", "TYPE", "COIN", "AMOUNT", "PRICE/COIN", "FROM", "TO")
	for _, t := range txs {
		row(tw, t.ID, t.CreatedAt.Format("2006-01-02 15:04"), t.TransactionType, t.CoinType, t.Amount,
			t.PricePerCoin.StringFixed(2), username(t.Sender), username(t.Receiver))
	}
	tw.Flush()
}
