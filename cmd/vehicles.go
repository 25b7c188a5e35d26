package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/evcc-io/cdrive/core"
	"github.com/evcc-io/cdrive/core/projector"
	"github.com/evcc-io/cdrive/core/session"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// vehiclesCmd lists the vehicles of all accounts
var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "List the vehicles of all configured accounts",
	Run:   runVehicles,
}

func init() {
	rootCmd.AddCommand(vehiclesCmd)
}

// sweep configures the engine and performs a single update sweep
func sweep(ctx context.Context) *site {
	conf, site, err := configure(ctx, new(core.Tee))
	if err != nil {
		log.FATAL.Fatal(err)
	}

	log.DEBUG.Printf("updating %d accounts", len(conf.Accounts))
	site.engine.Sweep(ctx)

	return site
}

func state(s core.Snapshot, key string) string {
	for _, st := range s.States {
		if st.Key == key {
			if st.Display != "" {
				return st.Display
			}
			return fmt.Sprintf("%v", st.Value)
		}
	}
	return ""
}

func runVehicles(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	site := sweep(ctx)
	defer site.store.Close()

	accounts := tablewriter.NewWriter(os.Stdout)
	accounts.SetHeader([]string{"Account", "Status"})
	for _, s := range site.engine.Sessions() {
		accounts.Append([]string{s.ID(), session.Label(s.State())})
	}
	accounts.Render()

	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"VIN", "Vehicle", "Account", "Status fields", "Updated"})

	for _, v := range site.engine.Vehicles() {
		s, ok := site.engine.Cache().Get(v.VIN)
		if !ok {
			continue
		}

		fields := make([]string, 0, len(projector.StatusFields))
		for _, f := range projector.AvailableStatusFields(s.Status) {
			fields = append(fields, fmt.Sprintf("%s=%s", f, state(s, f)))
		}

		table.Append([]string{
			v.VIN,
			v.Label,
			s.AccountID,
			strings.Join(fields, "\n"),
			humanize.Time(s.Updated),
		})
	}

	table.Render()
}
