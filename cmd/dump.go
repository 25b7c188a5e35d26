package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/server"
	"github.com/evcc-io/cdrive/vehicle"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// dumpCmd prints the cached vehicle data
var dumpCmd = &cobra.Command{
	Use:   "dump [vin]",
	Short: "Fetch and dump vehicle data",
	Args:  cobra.MaximumNArgs(1),
	Run:   runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().Bool("yaml", false, "Output yaml instead of json")
}

// marshal encodes v as indented json or yaml. Yaml output follows the json field names.
func marshal(v interface{}, asYaml bool) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil || !asYaml {
		return b, err
	}

	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}

	return yaml.Marshal(generic)
}

func runDump(cmd *cobra.Command, args []string) {
	asYaml, _ := cmd.Flags().GetBool("yaml")

	site := sweep(context.Background())
	defer site.store.Close()

	var v interface{}

	if len(args) == 1 {
		ref, err := vehicle.Ensure(args[0], func() ([]api.VehicleRef, error) {
			return cachedVehicles(site), nil
		})
		if err != nil {
			log.FATAL.Fatal(err)
		}

		s, _ := site.engine.Cache().Get(ref.VIN)
		v = server.Snapshot(s)
	} else {
		res := make([]interface{}, 0)
		for _, s := range site.engine.Cache().List() {
			res = append(res, server.Snapshot(s))
		}
		v = res
	}

	b, err := marshal(v, asYaml)
	if err != nil {
		log.FATAL.Fatal(err)
	}

	fmt.Println(string(b))
}
