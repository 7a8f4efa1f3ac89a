package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Product types for finished stock
const (
	ProductTruss      = "Treliça"
	ProductTrussPonta = "Ponta de Treliça"
)

// Ponta is a batch of leftover truss pieces of one length
type Ponta struct {
	Quantity    int     `bson:"quantity" json:"quantity"`
	Size        float64 `bson:"size" json:"size"`
	TotalWeight float64 `bson:"totalWeight" json:"totalWeight"`
}

// FinishedGood is the truss output of a completed Treliça order
type FinishedGood struct {
	ItemID         string    `bson:"itemId" json:"itemId"`
	ProductionDate time.Time `bson:"productionDate" json:"productionDate"`
	OrderID        string    `bson:"orderId" json:"orderId"`
	OrderNumber    string    `bson:"orderNumber" json:"orderNumber"`
	ProductType    string    `bson:"productType" json:"productType"`
	Model          string    `bson:"model" json:"model"`
	Size           string    `bson:"size" json:"size"`
	Quantity       int       `bson:"quantity" json:"quantity"`
	TotalWeight    float64   `bson:"totalWeight" json:"totalWeight"`
	Status         string    `bson:"status" json:"status"`
}

// PontaItem is a leftover batch booked into the pontas stock
type PontaItem FinishedGood

func newFinishedGood(o *ProductionOrder, quantity int, weight float64, now time.Time) FinishedGood {
	model := o.TrussModel
	if model == "" {
		model = "Desconhecido"
	}
	return FinishedGood{
		ItemID:         fmt.Sprintf("fg-%s", uuid.NewString()),
		ProductionDate: now,
		OrderID:        o.OrderID,
		OrderNumber:    o.OrderNumber,
		ProductType:    ProductTruss,
		Model:          model,
		Size:           o.TrussSize,
		Quantity:       quantity,
		TotalWeight:    weight,
		Status:         string(StockAvailable),
	}
}

func newPontaItem(o *ProductionOrder, p Ponta, now time.Time) PontaItem {
	return PontaItem{
		ItemID:         fmt.Sprintf("ponta-%s", uuid.NewString()),
		ProductionDate: now,
		OrderID:        o.OrderID,
		OrderNumber:    o.OrderNumber,
		ProductType:    ProductTrussPonta,
		Model:          o.TrussModel,
		Size:           strconv.FormatFloat(p.Size, 'f', -1, 64),
		Quantity:       p.Quantity,
		TotalWeight:    p.TotalWeight,
		Status:         string(StockAvailable),
	}
}
