package application

import (
	"github.com/mes-platform/production/services/production-service/internal/domain"
)

// ToOrderDTO converts a domain order to a DTO
func ToOrderDTO(order *domain.ProductionOrder) *OrderDTO {
	if order == nil {
		return nil
	}

	dto := &OrderDTO{
		OrderID:                order.OrderID,
		OrderNumber:            order.OrderNumber,
		Machine:                string(order.Machine),
		Status:                 string(order.Status),
		CreatedAt:              order.CreatedAt,
		UpdatedAt:              order.UpdatedAt,
		StartTime:              order.StartTime,
		EndTime:                order.EndTime,
		TargetBitola:           order.TargetBitola,
		TrussModel:             order.TrussModel,
		TrussSize:              order.TrussSize,
		QuantityToProduce:      order.QuantityToProduce,
		PlannedOutputWeight:    order.PlannedOutputWeight,
		TotalWeight:            order.TotalWeight,
		SelectedLots:           toSelectedLotsDTO(order.SelectedLots),
		DowntimeEvents:         make([]DowntimeEventDTO, 0, len(order.Downtime.History)+1),
		OperatorLogs:           nonNil(order.OperatorLogs),
		ProcessedLots:          nonNil(order.ProcessedLots),
		WeighedPackages:        nonNil(order.WeighedPackages),
		Pontas:                 nonNil(order.Pontas),
		ActiveLot:              order.ActiveLot,
		ActualProducedQuantity: order.ActualProducedQuantity,
		ActualProducedWeight:   order.ActualProducedWeight,
		ScrapWeight:            order.ScrapWeight,
		ConsumptionShortfall:   order.ConsumptionShortfall,
		Version:                order.Version,
	}

	for _, e := range order.Downtime.Events() {
		dto.DowntimeEvents = append(dto.DowntimeEvents, toDowntimeEventDTO(e))
	}
	if order.Downtime.Current != nil {
		current := toDowntimeEventDTO(*order.Downtime.Current)
		dto.CurrentDowntime = &current
	}

	return dto
}

// ToOrderDTOs converts a slice of domain orders to DTOs
func ToOrderDTOs(orders []*domain.ProductionOrder) []OrderDTO {
	dtos := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		if dto := ToOrderDTO(order); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

func toSelectedLotsDTO(sel domain.SelectedLots) SelectedLotsDTO {
	dto := SelectedLotsDTO{Kind: string(sel.Kind)}
	if sel.Kind == domain.SelectionRoles {
		dto.Roles = make(map[string][]string, len(sel.ByRole))
		for role, ids := range sel.ByRole {
			dto.Roles[string(role)] = ids
		}
		return dto
	}
	dto.LotIDs = nonNil(sel.LotIDs)
	return dto
}

func toDowntimeEventDTO(e domain.DowntimeEvent) DowntimeEventDTO {
	return DowntimeEventDTO{
		StopTime:   e.StopTime,
		ResumeTime: e.ResumeTime,
		Reason:     e.Reason,
	}
}

// ToTrussModelDTOs converts catalog rows to DTOs
func ToTrussModelDTOs(models []domain.TrussModel) []TrussModelDTO {
	dtos := make([]TrussModelDTO, 0, len(models))
	for _, m := range models {
		dtos = append(dtos, TrussModelDTO{
			Code:           m.Code,
			Model:          m.Model,
			Size:           m.Size,
			SuperiorGauge:  m.SuperiorGauge,
			InferiorGauge:  m.InferiorGauge,
			SenozoideGauge: m.SenozoideGauge,
			PesoFinal:      m.PesoFinal,
			PesoSuperior:   m.PesoSuperior,
			PesoInferior:   m.PesoInferior,
			PesoSenozoide:  m.PesoSenozoide,
		})
	}
	return dtos
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
