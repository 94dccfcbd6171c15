package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"discovery/internal/app"
	"discovery/internal/model"
)

var (
	seedUserID   string
	seedEmail    string
	seedName     string
	seedSections int
)

// seedCmd creates a demo response filled with sample answers
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo response with sample answers",
	Long: `Create (or extend) a response for a demo respondent and complete the first
N sections with sample answers. Sections without sample answers are skipped.

Example:
  qadmin seed --email demo@customer.test --sections 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedEmail == "" {
			return fmt.Errorf("--email is required")
		}
		id := model.Identity{UserID: seedUserID, Email: seedEmail, Name: seedName}
		if id.UserID == "" {
			id.UserID = uuid.NewString()
		}

		return withApp(func(ctx context.Context, a *app.App) error {
			resp, err := a.Questionnaire.LoadOrCreate(ctx, id)
			if err != nil {
				return err
			}

			sections := a.Catalog.Sections()
			for i := 0; i < seedSections && i < len(sections); i++ {
				answers, ok := sampleAnswers[sections[i].ID]
				if !ok {
					continue
				}
				done := true
				resp, err = a.Questionnaire.ApplySectionUpdate(ctx, id, model.SectionUpdate{
					SectionID: sections[i].ID,
					Answers:   answers,
					Completed: &done,
				})
				if err != nil {
					return fmt.Errorf("section %s: %w", sections[i].ID, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s (%s): %d%% complete\n",
				id.UserID, id.Email, resp.Progress.PercentComplete)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedUserID, "user-id", "", "Respondent id (default: random)")
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "Respondent email")
	seedCmd.Flags().StringVar(&seedName, "name", "Demo Respondent", "Respondent display name")
	seedCmd.Flags().IntVar(&seedSections, "sections", 10, "Number of sections to complete")
}

// sampleAnswers satisfies every required question of the built-in catalog
var sampleAnswers = map[string]model.SectionAnswers{
	"section1": {"companyName": "Northwind Traders", "industry": "distribution", "employeeCount": 240, "annualRevenue": "50to250m"},
	"section2": {"currentErp": "Legacy accounting suite", "systemAge": 12, "satisfaction": 2,
		"customisations": map[string]interface{}{"value": true, "followup": "Custom landed cost and rebate modules"}},
	"section3": {"entityCount": 4, "multiCurrency": map[string]interface{}{"value": true, "followup": "USD, EUR, GBP"}, "consolidation": "spreadsheets"},
	"section4": {"financeModules": []string{"gl", "ap", "ar", "fa"}, "monthEndDays": 9},
	"section5": {"operationsModules": []string{"inventory", "purchasing", "sales"}, "warehouses": 3, "inventoryAccuracy": 3},
	"section6": {"integrations": map[string]interface{}{"value": true, "followup": "Shopify, payroll, EDI with two retailers"}, "dataMigrationYears": 3},
	"section7": {"auditRequirements": false},
	"section8": {
		"selectionWeights": map[string]int{"price": 25, "functionality": 30, "scalability": 10, "integration": 15, "partner": 10, "timeline": 10},
		"priorityRanking":  []string{"functionalFit", "integrationFit", "multiEntity", "tco5Year", "controlsAudit", "implementationSpeed", "partnerDelivery"},
	},
	"section9":  {"targetGoLive": "2027-07-01"},
	"section10": {"successDefinition": "Month-end close in five days with one source of truth"},
}
