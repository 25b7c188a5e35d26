package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/vehicle"
	"github.com/spf13/cobra"
)

// commandCmd executes a remote command
var commandCmd = &cobra.Command{
	Use:       "command <command> [vin]",
	Short:     "Execute remote command and wait for the result",
	Long:      "Execute remote command and wait for the result. The vin may be omitted if a single vehicle is available.",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: commandNames(),
	Run:       runCommand,
}

func init() {
	rootCmd.AddCommand(commandCmd)

	commandCmd.Flags().Float64("lat", 0, "Latitude of the point of interest (send_poi)")
	commandCmd.Flags().Float64("lon", 0, "Longitude of the point of interest (send_poi)")
	commandCmd.Flags().String("name", "", "Name of the point of interest (send_poi)")
	commandCmd.Flags().String("street", "", "Street of the point of interest (send_poi)")
	commandCmd.Flags().String("city", "", "City of the point of interest (send_poi)")
	commandCmd.Flags().String("postalcode", "", "Postal code of the point of interest (send_poi)")
	commandCmd.Flags().String("country", "", "Country of the point of interest (send_poi)")
}

func commandNames() []string {
	res := make([]string, 0, len(api.Commands))
	for _, c := range api.Commands {
		res = append(res, c.String())
	}
	return res
}

func poiFlags(cmd *cobra.Command) *api.POI {
	flags := cmd.Flags()

	var poi api.POI
	poi.Latitude, _ = flags.GetFloat64("lat")
	poi.Longitude, _ = flags.GetFloat64("lon")
	poi.Name, _ = flags.GetString("name")
	poi.Street, _ = flags.GetString("street")
	poi.City, _ = flags.GetString("city")
	poi.PostalCode, _ = flags.GetString("postalcode")
	poi.Country, _ = flags.GetString("country")

	return &poi
}

func runCommand(cmd *cobra.Command, args []string) {
	command, err := api.CommandString(args[0])
	if err != nil {
		log.FATAL.Fatalf("%v (valid: %s)", err, strings.Join(commandNames(), ", "))
	}

	var poi *api.POI
	if command == api.CommandSendPOI {
		poi = poiFlags(cmd)
	}

	site := sweep(context.Background())
	defer site.store.Close()

	var vin string
	if len(args) == 2 {
		vin = args[1]
	}

	ref, err := vehicle.Ensure(vin, func() ([]api.VehicleRef, error) {
		return cachedVehicles(site), nil
	})
	if err != nil {
		log.FATAL.Fatal(err)
	}
	vin = ref.VIN

	if _, err := site.dispatcher.Dispatch(vin, command, poi); err != nil {
		log.FATAL.Fatal(err)
	}

	site.dispatcher.Wait()

	res, _ := site.dispatcher.Last(vin)
	if res.Err != nil {
		fmt.Printf("%s %s: %v\n", res.Command, res.State, res.Err)
		return
	}

	fmt.Printf("%s %s\n", res.Command, res.State)
}

// cachedVehicles returns the vehicles of the last sweep
func cachedVehicles(st *site) []api.VehicleRef {
	snapshots := st.engine.Cache().List()

	res := make([]api.VehicleRef, 0, len(snapshots))
	for _, s := range snapshots {
		res = append(res, s.Vehicle)
	}

	return res
}
