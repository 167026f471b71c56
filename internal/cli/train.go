package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/coldchain-ml/coldchain/coldchain"
	"github.com/coldchain-ml/coldchain/pkg/errors"
	"github.com/coldchain-ml/coldchain/plot"
	"github.com/spf13/cobra"
)

const (
	vaccineArtifactName = "vaccine_temp_model.gob"
	fruitArtifactName   = "fruit_edible_model.gob"
	fruitProcessedName  = "fruits_cleaned.csv"
)

func newTrainCommand(opts *rootOptions) *cobra.Command {
	train := &cobra.Command{
		Use:   "train",
		Short: "Train a model from a sensor dataset",
	}
	train.AddCommand(newTrainVaccineCommand(opts))
	train.AddCommand(newTrainFruitCommand(opts))
	return train
}

func newTrainVaccineCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vaccine",
		Short: "Train the vaccine shipper temperature model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := os.MkdirAll(cfg.Output.ModelsDir, 0o755); err != nil {
				return errors.Wrapf(err, "failed to create %s", cfg.Output.ModelsDir)
			}

			result, err := coldchain.TrainVaccine(coldchain.VaccineTrainConfig{
				DataPath:     cfg.Data.VaccineCSV,
				ArtifactPath: filepath.Join(cfg.Output.ModelsDir, vaccineArtifactName),
				NEstimators:  cfg.Training.NEstimators,
				RandomState:  cfg.Training.Seed,
				TestSize:     cfg.Training.TestSize,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vaccine model trained (run %s)\n", result.RunID)
			fmt.Fprintf(out, "  samples: %d train, %d test\n", result.NTrain, result.NTest)
			fmt.Fprintf(out, "  test MSE: %.4f\n", result.MSE)
			fmt.Fprintf(out, "  artifact: %s\n", result.ArtifactPath)

			if cfg.Output.Plots {
				if err := os.MkdirAll(cfg.Output.PlotsDir, 0o755); err != nil {
					return errors.Wrapf(err, "failed to create %s", cfg.Output.PlotsDir)
				}
				scatterPath := filepath.Join(cfg.Output.PlotsDir, "vaccine_predicted_actual.png")
				if err := plot.PredictedActualScatter(result.TestActual, result.TestPredicted,
					"Shipper temperature: predicted vs actual", scatterPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "  plot: %s\n", scatterPath)
			}
			return nil
		},
	}
}

func newTrainFruitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fruit",
		Short: "Train the fruit edibility model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			for _, dir := range []string{cfg.Output.ModelsDir, cfg.Output.ProcessedDir} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return errors.Wrapf(err, "failed to create %s", dir)
				}
			}

			result, err := coldchain.TrainFruit(coldchain.FruitTrainConfig{
				DataPath:      cfg.Data.FruitCSV,
				ArtifactPath:  filepath.Join(cfg.Output.ModelsDir, fruitArtifactName),
				ProcessedPath: filepath.Join(cfg.Output.ProcessedDir, fruitProcessedName),
				NEstimators:   cfg.Training.NEstimators,
				RandomState:   cfg.Training.Seed,
				TestSize:      cfg.Training.TestSize,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fruit model trained (run %s)\n", result.RunID)
			fmt.Fprintf(out, "  samples: %d train, %d test\n", result.NTrain, result.NTest)
			fmt.Fprintf(out, "  test accuracy: %.4f\n", result.Accuracy)
			fmt.Fprintf(out, "\n%s\n", result.Report)
			fmt.Fprintf(out, "  artifact: %s\n", result.ArtifactPath)
			fmt.Fprintf(out, "  processed dataset: %s\n", result.ProcessedPath)

			if cfg.Output.Plots {
				if err := os.MkdirAll(cfg.Output.PlotsDir, 0o755); err != nil {
					return errors.Wrapf(err, "failed to create %s", cfg.Output.PlotsDir)
				}
				barPath := filepath.Join(cfg.Output.PlotsDir, "fruit_feature_importance.png")
				if err := plot.FeatureImportanceBar(result.Importances,
					"Fruit edibility: feature importance", barPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "  plot: %s\n", barPath)
			}
			return nil
		},
	}
}
