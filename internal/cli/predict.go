package cli

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coldchain-ml/coldchain/coldchain"
	"github.com/spf13/cobra"
)

func newPredictCommand(opts *rootOptions) *cobra.Command {
	predict := &cobra.Command{
		Use:   "predict",
		Short: "Predict from a trained model artifact",
	}
	predict.AddCommand(newPredictVaccineCommand(opts))
	predict.AddCommand(newPredictFruitCommand(opts))
	return predict
}

func newPredictVaccineCommand(opts *rootOptions) *cobra.Command {
	var (
		roomTemp     float64
		roomHumidity float64
	)

	cmd := &cobra.Command{
		Use:   "vaccine",
		Short: "Predict vaccine shipper temperature from room conditions",
		Long:  "Predicts the shipper temperature for given room conditions. With --room-temp and --room-humidity a single prediction is printed; without them an interactive prompt loop reads readings from stdin until 'exit'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			predictor, err := coldchain.LoadVaccinePredictor(
				filepath.Join(cfg.Output.ModelsDir, vaccineArtifactName),
				cfg.Vaccine.SafeMinTemp, cfg.Vaccine.SafeMaxTemp)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("room-temp") || cmd.Flags().Changed("room-humidity") {
				pred, err := predictor.Predict(roomTemp, roomHumidity)
				if err != nil {
					return err
				}
				printVaccinePrediction(cmd, pred)
				return nil
			}
			return runVaccinePromptLoop(cmd, predictor)
		},
	}

	cmd.Flags().Float64Var(&roomTemp, "room-temp", 0, "room temperature in °C")
	cmd.Flags().Float64Var(&roomHumidity, "room-humidity", 0, "room relative humidity in %")
	return cmd
}

// runVaccinePromptLoop reads room readings from stdin until the operator
// types "exit" on either prompt.
func runVaccinePromptLoop(cmd *cobra.Command, predictor *coldchain.VaccinePredictor) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	readValue := func(prompt string) (float64, bool, error) {
		for {
			fmt.Fprint(out, prompt)
			if !scanner.Scan() {
				return 0, true, scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if strings.EqualFold(line, "exit") {
				return 0, true, nil
			}
			v, err := strconv.ParseFloat(line, 64)
			if err != nil {
				fmt.Fprintln(out, "invalid input, enter a numeric value")
				continue
			}
			return v, false, nil
		}
	}

	for {
		fmt.Fprintln(out, "Enter room conditions to predict shipper temperature (type 'exit' to quit):")
		temp, done, err := readValue("Room temperature (°C): ")
		if done || err != nil {
			return err
		}
		humidity, done, err := readValue("Room humidity (%): ")
		if done || err != nil {
			return err
		}

		pred, err := predictor.Predict(temp, humidity)
		if err != nil {
			return err
		}
		printVaccinePrediction(cmd, pred)
		fmt.Fprintln(out)
	}
}

func printVaccinePrediction(cmd *cobra.Command, pred *coldchain.VaccinePrediction) {
	fmt.Fprintf(cmd.OutOrStdout(), "predicted shipper temperature: %.2f °C (%s)\n",
		pred.ShipperTemp, pred.Assessment.Advice())
}

func newPredictFruitCommand(opts *rootOptions) *cobra.Command {
	var (
		temp     float64
		humidity float64
		co2      float64
	)

	cmd := &cobra.Command{
		Use:   "fruit",
		Short: "Rank fruit types by edibility under given storage conditions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			ranker, err := coldchain.LoadFruitRanker(
				filepath.Join(cfg.Output.ModelsDir, fruitArtifactName))
			if err != nil {
				return err
			}

			scores, err := ranker.Rank(temp, humidity, co2)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "edibility under temp=%.1f humidity=%.1f co2=%.1f:\n", temp, humidity, co2)
			for _, s := range scores {
				fmt.Fprintf(out, "  %-12s %6.2f%% edible\n", s.Fruit, s.EdibleProbability*100)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&temp, "temp", 0, "storage temperature in °C")
	cmd.Flags().Float64Var(&humidity, "humidity", 0, "storage relative humidity in %")
	cmd.Flags().Float64Var(&co2, "co2", 0, "CO2 level in ppm")
	for _, f := range []string{"temp", "humidity", "co2"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
