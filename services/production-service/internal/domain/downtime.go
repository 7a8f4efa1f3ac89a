package domain

import (
	"strings"
	"time"
)

// Sentinel downtime reasons
const (
	ReasonShiftEnd      = "Final de Turno"
	ReasonAwaitingStart = "Aguardando Início da Produção"
	ReasonRollChange    = "Troca de Rolo / Preparação"
)

// IsPreparationReason reports whether reason is a preparation sub-state rather than a stoppage
func IsPreparationReason(reason string) bool {
	return reason == ReasonAwaitingStart || reason == ReasonRollChange
}

// DowntimeEvent is a stop-to-resume interval
type DowntimeEvent struct {
	StopTime   time.Time  `bson:"stopTime" json:"stopTime"`
	ResumeTime *time.Time `bson:"resumeTime" json:"resumeTime"`
	Reason     string     `bson:"reason" json:"reason"`
}

// IsOpen reports whether the machine is still stopped for this event
func (e DowntimeEvent) IsOpen() bool {
	return e.ResumeTime == nil
}

// overlaps reports whether [stopTime, resumeTime ?? end] intersects [start, end]
func (e DowntimeEvent) overlaps(start, end time.Time) bool {
	until := end
	if e.ResumeTime != nil {
		until = *e.ResumeTime
	}
	return !e.StopTime.After(end) && !until.Before(start)
}

// DowntimeLog holds at most one open interval, in Current, and the closed ones in append order
type DowntimeLog struct {
	Current *DowntimeEvent  `bson:"current,omitempty" json:"current,omitempty"`
	History []DowntimeEvent `bson:"history" json:"history"`
}

// Open closes the current interval at now and opens a new one with reason
func (l *DowntimeLog) Open(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	l.Close(now)
	l.Current = &DowntimeEvent{StopTime: now, Reason: reason}
	return nil
}

// Close ends the current interval at now. It returns the closed event, or nil if none was open.
func (l *DowntimeLog) Close(now time.Time) *DowntimeEvent {
	if l.Current == nil {
		return nil
	}
	closed := *l.Current
	closed.ResumeTime = timePtr(now)
	l.History = append(l.History, closed)
	l.Current = nil
	return &closed
}

// CurrentReason returns the open interval's reason, or "" while producing
func (l DowntimeLog) CurrentReason() string {
	if l.Current == nil {
		return ""
	}
	return l.Current.Reason
}

// Events returns history followed by the open interval
func (l DowntimeLog) Events() []DowntimeEvent {
	events := make([]DowntimeEvent, 0, len(l.History)+1)
	events = append(events, l.History...)
	if l.Current != nil {
		events = append(events, *l.Current)
	}
	return events
}

// OpenCount counts events without a resume time
func (l DowntimeLog) OpenCount() int {
	n := 0
	for _, e := range l.Events() {
		if e.IsOpen() {
			n++
		}
	}
	return n
}

// LastResume returns the resume time of the most recently closed interval
func (l DowntimeLog) LastResume() *time.Time {
	if len(l.History) == 0 {
		return nil
	}
	return l.History[len(l.History)-1].ResumeTime
}

// LogDowntime records a stop with the given reason
func (o *ProductionOrder) LogDowntime(reason string, now time.Time) error {
	if err := o.requireInProgress(); err != nil {
		return err
	}
	if err := o.Downtime.Open(reason, now); err != nil {
		return err
	}
	o.UpdatedAt = now
	o.AddDomainEvent(NewDowntimeLoggedEvent(o, o.Downtime.Current.Reason, now))
	return nil
}

// ResumeProduction closes the open interval. A Trefila with no lot on the
// machine cannot produce, so it goes straight back into roll change.
// Resuming with nothing open changes nothing.
func (o *ProductionOrder) ResumeProduction(now time.Time) error {
	if err := o.requireInProgress(); err != nil {
		return err
	}
	closed := o.Downtime.Close(now)
	if closed == nil {
		return nil
	}
	if o.Machine == MachineTrefila && o.ActiveLot == nil {
		if err := o.Downtime.Open(ReasonRollChange, now); err != nil {
			return err
		}
	}
	o.UpdatedAt = now
	o.AddDomainEvent(NewProductionResumedEvent(o, closed.Reason, now))
	return nil
}
