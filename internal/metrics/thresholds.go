package metrics

import (
	"fmt"
	"strconv"
	"strings"
)

// ThresholdResult is the verdict of one threshold expression.
type ThresholdResult struct {
	Expression string  `json:"expression"`
	Value      float64 `json:"value"`
	Passed     bool    `json:"passed"`
	Err        string  `json:"error,omitempty"`
}

// EvaluateThresholds checks expressions like "batch_latency.p95 < 500" or
// "error_rate < 0.01" against the summary. Recognized metrics:
// batch_latency.{min,max,avg,med,p90,p95,p99} (ms), error_rate,
// partial_rate, ok_rate, total_batches.
func EvaluateThresholds(s *Summary, expressions []string) []ThresholdResult {
	results := make([]ThresholdResult, len(expressions))
	for i, expr := range expressions {
		results[i] = evaluateThreshold(s, expr)
	}
	return results
}

func evaluateThreshold(s *Summary, expr string) ThresholdResult {
	result := ThresholdResult{Expression: expr}

	var op string
	var metricPart, valuePart string
	for _, operator := range []string{"<=", ">=", "!=", "==", "<", ">"} {
		if idx := strings.Index(expr, operator); idx >= 0 {
			op = operator
			metricPart = strings.TrimSpace(expr[:idx])
			valuePart = strings.TrimSpace(expr[idx+len(operator):])
			break
		}
	}
	if op == "" {
		result.Err = fmt.Sprintf("invalid condition format: %s", expr)
		return result
	}

	threshold, err := strconv.ParseFloat(valuePart, 64)
	if err != nil {
		result.Err = fmt.Sprintf("invalid threshold value: %s", valuePart)
		return result
	}

	value, err := metricValue(s, metricPart)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	result.Value = value

	switch op {
	case "<":
		result.Passed = value < threshold
	case "<=":
		result.Passed = value <= threshold
	case ">":
		result.Passed = value > threshold
	case ">=":
		result.Passed = value >= threshold
	case "==":
		result.Passed = value == threshold
	case "!=":
		result.Passed = value != threshold
	}
	return result
}

func metricValue(s *Summary, name string) (float64, error) {
	switch name {
	case "total_batches":
		return float64(s.TotalBatches), nil
	case "ok_rate":
		return s.ShardOkRate, nil
	case "error_rate":
		if s.TotalBatches == 0 {
			return 0, nil
		}
		return float64(s.TotalFailure) / float64(s.TotalBatches), nil
	case "partial_rate":
		if s.TotalBatches == 0 {
			return 0, nil
		}
		return float64(s.PartialSuccess) / float64(s.TotalBatches), nil
	}

	if stat, ok := strings.CutPrefix(name, "batch_latency."); ok {
		if s.BatchLatency == nil {
			return 0, fmt.Errorf("no latency samples for threshold %q", name)
		}
		key := stat
		switch stat {
		case "p50":
			key = "med"
		case "p90", "p95", "p99":
			key = "p(" + stat[1:] + ")"
		}
		if v, ok := s.BatchLatency[key]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("unknown latency stat %q", stat)
	}

	return 0, fmt.Errorf("unknown threshold metric %q", name)
}
