package model

import "fmt"

// Resources is an amount of the two resource dimensions a cluster budgets: memory and CPU.
type Resources struct {
	RAM int `json:"ram"`
	CPU int `json:"cpu"`
}

// Fits returns true if r is no larger than budget in every dimension.
func (r Resources) Fits(budget Resources) bool {
	return r.RAM <= budget.RAM && r.CPU <= budget.CPU
}

// Add returns the dimension-wise sum of r and o.
func (r Resources) Add(o Resources) Resources {
	return Resources{RAM: r.RAM + o.RAM, CPU: r.CPU + o.CPU}
}

// Sub returns the dimension-wise difference of r and o.
func (r Resources) Sub(o Resources) Resources {
	return Resources{RAM: r.RAM - o.RAM, CPU: r.CPU - o.CPU}
}

// IsNegative returns true if either dimension is below zero.
func (r Resources) IsNegative() bool {
	return r.RAM < 0 || r.CPU < 0
}

func (r Resources) String() string {
	return fmt.Sprintf("ram=%d cpu=%d", r.RAM, r.CPU)
}
