package cluster

import (
	"fmt"

	"github.com/determined-ai/jobsched/pkg/model"
)

// Fitting policies choose among the clusters that can all hold a job.
const (
	// FirstFit places a job on the first cluster, in registration order, that can hold it.
	FirstFit = "first"
	// BestFit places a job on the cluster that is left with the least headroom.
	BestFit = "best"
	// WorstFit places a job on the cluster that is left with the most headroom.
	WorstFit = "worst"
)

// FittingPolicies lists the valid fitting policy names.
var FittingPolicies = []interface{}{FirstFit, BestFit, WorstFit}

// FitFunction returns an affinity score between 0 and 1 for placing demand on a cluster. The
// cluster is known to have room for the demand. Higher scores win; equal scores keep
// registration order.
type FitFunction func(demand model.Resources, cluster Summary) float64

// Hard Constraints

func resourcesSatisfied(demand model.Resources, cluster Summary) bool {
	return demand.Fits(cluster.Available)
}

// Soft Constraints

func firstFit(model.Resources, Summary) float64 {
	return 1.0
}

// bestFitScore favors the cluster that would be most utilized after placement. This should be
// used when large jobs are common and need whole clusters left free.
func bestFitScore(demand model.Resources, cluster Summary) float64 {
	return 1.0 / (1.0 + headroom(demand, cluster))
}

// worstFitScore favors the cluster that would be least utilized after placement, spreading load.
func worstFitScore(demand model.Resources, cluster Summary) float64 {
	return headroom(demand, cluster)
}

// headroom is the mean fraction of each resource left free after placing demand, in [0, 1].
func headroom(demand model.Resources, cluster Summary) float64 {
	left := cluster.Available.Sub(demand)
	return (fraction(left.RAM, cluster.Capacity.RAM) + fraction(left.CPU, cluster.Capacity.CPU)) / 2
}

func fraction(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// MakeFitFunction returns the corresponding fitting function.
func MakeFitFunction(fittingPolicy string) FitFunction {
	switch fittingPolicy {
	case FirstFit, "":
		return firstFit
	case BestFit:
		return bestFitScore
	case WorstFit:
		return worstFitScore
	default:
		panic(fmt.Sprintf("invalid fitting policy: %s", fittingPolicy))
	}
}
