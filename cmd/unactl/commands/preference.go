package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"una/internal/market/domain"

	"github.com/spf13/cobra"
)

type preferenceView struct {
	Market     domain.Market   `json:"market"`
	MarketName string          `json:"market_name"`
	Language   domain.Language `json:"language"`
	Currency   string          `json:"currency"`
	AutoDetect bool            `json:"auto_detect"`
	Source     domain.Source   `json:"source"`
}

func printPreference(w io.Writer, p domain.Preference, asJSON bool) error {
	v := preferenceView{
		Market:     p.Market,
		MarketName: p.Market.DisplayName(p.Language),
		Language:   p.Language,
		Currency:   p.Currency(),
		AutoDetect: p.AutoDetect,
		Source:     p.Source,
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "market:\t%s (%s)\n", v.Market, v.MarketName)
	fmt.Fprintf(tw, "language:\t%s\n", v.Language)
	fmt.Fprintf(tw, "currency:\t%s\n", v.Currency)
	fmt.Fprintf(tw, "autoDetect:\t%t\n", v.AutoDetect)
	fmt.Fprintf(tw, "source:\t%s\n", v.Source)
	return tw.Flush()
}

func resolveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Определить рынок и язык этого устройства",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, cleanup, err := opts.openSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			authenticated, userID, _ := opts.identity()
			pref := session.ResolveMarket(cmd.Context(), authenticated, userID)
			return printPreference(cmd.OutOrStdout(), pref, opts.asJSON)
		},
	}
}

func setMarketCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "set-market <israel|argentina>",
		Short:     "Выбрать рынок вручную (язык следует за рынком)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.MarketIsrael), string(domain.MarketArgentina)},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := domain.ParseMarket(args[0])
			if err != nil {
				return fmt.Errorf("%q: %w", args[0], err)
			}

			session, cleanup, err := opts.openSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			pref, err := session.SetMarket(cmd.Context(), m)
			if err != nil {
				return err
			}
			return printPreference(cmd.OutOrStdout(), pref, opts.asJSON)
		},
	}
}

func setLanguageCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set-language <he|es|en>",
		Short: "Выбрать язык интерфейса, рынок не меняется",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := domain.ParseLanguage(args[0])
			if err != nil {
				return fmt.Errorf("%q: %w", args[0], err)
			}

			session, cleanup, err := opts.openSession(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			pref, err := session.SetLanguage(cmd.Context(), l)
			if err != nil {
				return err
			}
			return printPreference(cmd.OutOrStdout(), pref, opts.asJSON)
		},
	}
}

func marketsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "markets",
		Short: "Список поддерживаемых рынков",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if opts.asJSON {
				views := make([]preferenceView, 0, len(domain.Markets()))
				for _, m := range domain.Markets() {
					p := m.Profile()
					views = append(views, preferenceView{
						Market:     m,
						MarketName: m.DisplayName(domain.LanguageEnglish),
						Language:   p.DefaultLanguage,
						Currency:   p.Currency,
						AutoDetect: true,
						Source:     domain.SourceDefault,
					})
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MARKET\tLANGUAGE\tCURRENCY\tNAME")
			for _, m := range domain.Markets() {
				p := m.Profile()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m, p.DefaultLanguage, p.Currency, m.DisplayName(p.DefaultLanguage))
			}
			return tw.Flush()
		},
	}
}
