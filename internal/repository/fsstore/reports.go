package fsstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/datapilot/datapilot/internal/domain"
)

// ReportStore persists EDA reports and training result tables per dataset.
type ReportStore struct {
	root string
}

func NewReportStore(root string) (*ReportStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports folder: %w", err)
	}
	return &ReportStore{root: root}, nil
}

func (r *ReportStore) edaPath(datasetID string) string {
	return filepath.Join(r.root, fmt.Sprintf("eda_report_%s.txt", datasetID))
}

func (r *ReportStore) trainingPath(datasetID string) string {
	return filepath.Join(r.root, fmt.Sprintf("training_results_%s.csv", datasetID))
}

// SaveEDAReport writes the report text for a dataset.
func (r *ReportStore) SaveEDAReport(datasetID, report string) error {
	if err := os.WriteFile(r.edaPath(datasetID), []byte(report), 0o644); err != nil {
		return fmt.Errorf("failed to save EDA report: %w", err)
	}
	return nil
}

// EDAReport reads back a stored report.
func (r *ReportStore) EDAReport(datasetID string) (string, error) {
	data, err := os.ReadFile(r.edaPath(datasetID))
	if err != nil {
		return "", fmt.Errorf("no EDA report found for dataset %s: %w", datasetID, err)
	}
	return string(data), nil
}

// SaveTrainingResults writes training metrics as a CSV with one row per
// model and one column per metric.
func (r *ReportStore) SaveTrainingResults(datasetID string, results []domain.ModelResult) error {
	metricSet := map[string]bool{}
	for _, res := range results {
		for name := range res.Metrics {
			metricSet[name] = true
		}
	}
	metrics := make([]string, 0, len(metricSet))
	for name := range metricSet {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)

	file, err := os.Create(r.trainingPath(datasetID))
	if err != nil {
		return fmt.Errorf("failed to create training results file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := append([]string{"model_name"}, metrics...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, res := range results {
		row := []string{res.ModelName}
		for _, m := range metrics {
			if v, ok := res.Metrics[m]; ok {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// TrainingSummary reads stored training results back as a short plain-text
// summary suitable for an insight prompt.
func (r *ReportStore) TrainingSummary(datasetID string) (string, error) {
	file, err := os.Open(r.trainingPath(datasetID))
	if err != nil {
		return "", fmt.Errorf("no training results found for dataset %s: %w", datasetID, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse training results: %w", err)
	}
	if len(records) < 2 {
		return "", fmt.Errorf("training results for dataset %s are empty", datasetID)
	}

	summary := "Model Training Results:\n\n"
	for i, rec := range records {
		if i > 5 { // header plus first five rows
			break
		}
		for j, cell := range rec {
			if j > 0 {
				summary += "  "
			}
			summary += cell
		}
		summary += "\n"
	}
	return summary, nil
}
