package metrics

import (
	"math"
	"sort"
)

// Aggregate groups records by model name and computes one Summary per
// model. Latency, token, and cost statistics cover successful records only;
// error records contribute to ErrorCount. Summaries are sorted by model
// name, ascending.
func Aggregate(records []Record) []Summary {
	byModel := make(map[string][]Record)
	errors := make(map[string]int)
	var names []string

	for _, r := range records {
		if _, seen := byModel[r.ModelName]; !seen {
			byModel[r.ModelName] = nil
			names = append(names, r.ModelName)
		}
		if r.Status == StatusError {
			errors[r.ModelName]++
			continue
		}
		byModel[r.ModelName] = append(byModel[r.ModelName], r)
	}
	sort.Strings(names)

	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		group := byModel[name]
		s := Summary{
			ModelName:    name,
			Count:        len(group) + errors[name],
			SuccessCount: len(group),
			ErrorCount:   errors[name],
		}

		if len(group) > 0 {
			latencies := make([]float64, len(group))
			var inputSum, outputSum, costSum float64
			validCount := 0
			for i, r := range group {
				latencies[i] = r.LatencyMs
				inputSum += float64(r.InputTokens)
				outputSum += float64(r.OutputTokens)
				costSum += r.CostUSDTotal
				if r.JSONValid != nil && *r.JSONValid {
					validCount++
				}
			}
			sort.Float64s(latencies)

			n := float64(len(group))
			s.AvgInputTokens = round1(inputSum / n)
			s.AvgOutputTokens = round1(outputSum / n)
			s.P50LatencyMs = round1(Percentile(latencies, 0.50))
			s.P95LatencyMs = round1(Percentile(latencies, 0.95))
			s.P99LatencyMs = round1(Percentile(latencies, 0.99))
			s.MinLatencyMs = round1(latencies[0])
			s.MaxLatencyMs = round1(latencies[len(latencies)-1])
			s.JSONValidPct = round2(float64(validCount) / n * 100)
			s.AvgCostUSD = round6(costSum / n)
			s.TotalCostUSD = round6(costSum)
		}

		summaries = append(summaries, s)
	}
	return summaries
}

// Percentile computes the p-quantile (0 <= p <= 1) of an already sorted
// sample using linear interpolation between the two nearest ranks. An empty
// sample yields 0.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
