package main

import (
	"context"
	"fmt"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/internal/storage/sqlite"
	"github.com/sandevgo/replydesk/pkg/log"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Create the default business and sample FAQs",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, appCfg, flushLog := bootstrap(cmd.Context(), cmd.ErrOrStderr())
		defer flushLog()

		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return err
		}
		defer db.Close()

		b, created, err := seed(ctx, sqlite.NewStore(db))
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Seed data created successfully!"))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Business: %s (%s)\n", b.Name, b.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedStore interface {
	core.BusinessRepository
	core.KnowledgeRepository
}

// seed creates the default business with sample FAQs unless a business
// already exists, in which case the first one is returned untouched.
func seed(ctx context.Context, store seedStore) (*core.Business, bool, error) {
	existing, err := store.ListBusinesses(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		log.FromCtx(ctx).Info().Str("business_id", existing[0].ID).Msg("business already exists, skipping seed")
		return &existing[0], false, nil
	}

	b := defaultBusiness()
	if err := store.SaveBusiness(ctx, b); err != nil {
		return nil, false, err
	}
	for _, faq := range defaultFAQs() {
		item := &core.KnowledgeItem{
			BusinessID: b.ID,
			Kind:       core.KnowledgeFAQ,
			Title:      faq.Question,
			Question:   faq.Question,
			Answer:     faq.Answer,
			Source:     "seed",
		}
		if err := store.AddKnowledge(ctx, item); err != nil {
			return nil, false, err
		}
	}
	return b, true, nil
}

func defaultBusiness() *core.Business {
	weekday := func() *core.DayHours { return &core.DayHours{Open: "09:00", Close: "17:00"} }
	return &core.Business{
		Name:     "Your Business",
		Timezone: "America/New_York",
		Hours: core.BusinessHours{
			"monday":    weekday(),
			"tuesday":   weekday(),
			"wednesday": weekday(),
			"thursday":  weekday(),
			"friday":    weekday(),
			"saturday":  {Open: "10:00", Close: "14:00"},
			"sunday":    nil,
		},
		Services:           []string{"Consultation", "Support", "Sales"},
		PricingNotes:       "Contact us for detailed pricing information.",
		Tone:               core.DefaultTone,
		EscalationContacts: []string{"+1234567890", "admin@example.com"},
	}
}

type faqSeed struct {
	Question string
	Answer   string
}

func defaultFAQs() []faqSeed {
	return []faqSeed{
		{
			Question: "What are your business hours?",
			Answer:   "We are open Monday through Friday from 9 AM to 5 PM, and Saturday from 10 AM to 2 PM. We are closed on Sundays.",
		},
		{
			Question: "How can I contact support?",
			Answer:   "You can reach our support team by calling us during business hours, sending us an SMS, or emailing us. Our AI assistant can also help answer common questions.",
		},
		{
			Question: "Do you offer refunds?",
			Answer:   "Our refund policy depends on the specific product or service. Please contact us directly for assistance with refund requests.",
		},
	}
}
