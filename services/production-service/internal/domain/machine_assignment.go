package domain

import "time"

// MachineAssignment records which order currently holds a machine.
// There is one document per machine; an empty OrderID means the machine is free.
type MachineAssignment struct {
	Machine    Machine   `bson:"machine" json:"machine"`
	OrderID    string    `bson:"orderId,omitempty" json:"orderId,omitempty"`
	AcquiredAt time.Time `bson:"acquiredAt" json:"acquiredAt"`
	Version    int64     `bson:"version" json:"version"`
}

// IsFree reports whether no order holds the machine
func (a *MachineAssignment) IsFree() bool {
	return a == nil || a.OrderID == ""
}

// HeldBy reports whether orderID holds the machine
func (a *MachineAssignment) HeldBy(orderID string) bool {
	return a != nil && a.OrderID == orderID
}

// AcquireResult is the outcome of claiming a machine. Previous is the order
// that held the machine before, if it was a different one.
type AcquireResult struct {
	Assignment MachineAssignment
	Previous   string
}
