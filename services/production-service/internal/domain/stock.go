package domain

import (
	"time"
)

// StockStatus is the lifecycle label of a raw-material lot
type StockStatus string

const (
	StockAvailable           StockStatus = "Disponível"
	StockInProduction        StockStatus = "Em Produção"
	StockInProductionTrelica StockStatus = "Em Produção - Treliça"
	StockInProductionTrefila StockStatus = "Em Produção - Trefila"
	StockTransferred         StockStatus = "Transferido"
	StockTrussSupport        StockStatus = "Disponível - Suporte Treliça"
	StockCA60                StockStatus = "CA-60"
	StockConsumedForTruss    StockStatus = "Consumido para fazer treliça"
)

// Material types
const (
	MaterialWireRod = "Fio Máquina"
	MaterialCA60    = "CA-60"
)

// History entry types written by this service
const (
	HistoryTransformedCA60  = "Transformado em CA-60"
	HistoryTrussConsumption = "Consumido na Produção de Treliça"
	HistoryReserved         = "Reservado para Produção"
	HistoryReleased         = "Liberado da Produção"
)

// HistoryEntry is one line of a lot's audit trail
type HistoryEntry struct {
	Type    string            `bson:"type" json:"type"`
	Date    time.Time         `bson:"date" json:"date"`
	Details map[string]string `bson:"details" json:"details"`
}

// StockItem is a raw-material lot. The stock register belongs to another
// system; this service only reserves, consumes and transforms lots.
type StockItem struct {
	StockID            string         `bson:"stockId" json:"stockId"`
	InternalLot        string         `bson:"internalLot" json:"internalLot"`
	SupplierLot        string         `bson:"supplierLot" json:"supplierLot"`
	MaterialType       string         `bson:"materialType" json:"materialType"`
	Bitola             string         `bson:"bitola" json:"bitola"`
	LabelWeight        float64        `bson:"labelWeight" json:"labelWeight"`
	InitialQuantity    float64        `bson:"initialQuantity" json:"initialQuantity"`
	RemainingQuantity  float64        `bson:"remainingQuantity" json:"remainingQuantity"`
	Status             StockStatus    `bson:"status" json:"status"`
	Location           string         `bson:"location,omitempty" json:"location,omitempty"`
	ProductionOrderIDs []string       `bson:"productionOrderIds" json:"productionOrderIds"`
	History            []HistoryEntry `bson:"history" json:"history"`
	Version            int64          `bson:"version" json:"version"`
}

// IsTrussPriority reports whether the lot is already feeding truss production
func (s *StockItem) IsTrussPriority() bool {
	return s.Status == StockTrussSupport || s.Status == StockInProductionTrelica
}

// ReferencedBy reports whether orderID holds the lot
func (s *StockItem) ReferencedBy(orderID string) bool {
	for _, id := range s.ProductionOrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

// OtherOrders returns the holders other than orderID
func (s *StockItem) OtherOrders(orderID string) []string {
	others := make([]string, 0, len(s.ProductionOrderIDs))
	for _, id := range s.ProductionOrderIDs {
		if id != orderID {
			others = append(others, id)
		}
	}
	return others
}

// Reserve marks the lot as held by orderID
func (s *StockItem) Reserve(orderID string, status StockStatus, orderNumber string, now time.Time) {
	if !s.ReferencedBy(orderID) {
		s.ProductionOrderIDs = append(s.ProductionOrderIDs, orderID)
	}
	s.Status = status
	s.appendHistory(HistoryReserved, now, map[string]string{"Ordem": orderNumber})
}

// Release drops orderID. Once nobody holds the lot it is available again
// and loses its recorded location.
func (s *StockItem) Release(orderID, orderNumber string, now time.Time) {
	if !s.ReferencedBy(orderID) {
		return
	}
	s.ProductionOrderIDs = s.OtherOrders(orderID)
	if len(s.ProductionOrderIDs) == 0 {
		s.Status = StockAvailable
		s.Location = ""
	}
	s.appendHistory(HistoryReleased, now, map[string]string{"Ordem": orderNumber})
}

func (s *StockItem) appendHistory(kind string, now time.Time, details map[string]string) {
	s.History = append(s.History, HistoryEntry{Type: kind, Date: now, Details: details})
}
