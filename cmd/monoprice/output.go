package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pior/monoprice"
	"github.com/pior/monoprice/protocol"
)

type zoneJSON struct {
	Zone         int    `json:"zone"`
	PA           bool   `json:"pa"`
	Power        bool   `json:"power"`
	Mute         bool   `json:"mute"`
	DoNotDisturb bool   `json:"do_not_disturb"`
	Volume       int    `json:"volume"`
	Treble       int    `json:"treble"`
	Bass         int    `json:"bass"`
	Balance      int    `json:"balance"`
	Source       int    `json:"source"`
	Keypad       bool   `json:"keypad"`
	Line         string `json:"line"`
}

func newZoneJSON(s protocol.ZoneStatus) zoneJSON {
	return zoneJSON{
		Zone:         s.Zone,
		PA:           s.PA,
		Power:        s.Power,
		Mute:         s.Mute,
		DoNotDisturb: s.DoNotDisturb,
		Volume:       s.Volume,
		Treble:       s.Treble,
		Bass:         s.Bass,
		Balance:      s.Balance,
		Source:       s.Source,
		Keypad:       s.Keypad,
		Line:         s.Line(),
	}
}

type changeJSON struct {
	First    bool      `json:"first"`
	Previous *zoneJSON `json:"previous,omitempty"`
	Current  zoneJSON  `json:"current"`
}

func (cli *app) printStatuses(w io.Writer, statuses []protocol.ZoneStatus) error {
	if cli.format == "json" {
		zones := make([]zoneJSON, 0, len(statuses))
		for _, s := range statuses {
			zones = append(zones, newZoneJSON(s))
		}
		return json.NewEncoder(w).Encode(zones)
	}

	for _, s := range statuses {
		if _, err := fmt.Fprintln(w, formatStatus(s)); err != nil {
			return err
		}
	}
	return nil
}

func (cli *app) printChange(w io.Writer, change monoprice.ZoneChange) error {
	if cli.format == "json" {
		c := changeJSON{First: change.First, Current: newZoneJSON(change.Current)}
		if !change.First {
			prev := newZoneJSON(change.Previous)
			c.Previous = &prev
		}
		return json.NewEncoder(w).Encode(c)
	}

	_, err := fmt.Fprintln(w, formatStatus(change.Current))
	return err
}

func formatStatus(s protocol.ZoneStatus) string {
	return fmt.Sprintf("zone %d: power=%s mute=%s volume=%d treble=%+d bass=%+d balance=%+d source=%d (%s)",
		s.Zone, onOff(s.Power), onOff(s.Mute), s.Volume,
		s.TrebleOffset(), s.BassOffset(), s.BalanceOffset(), s.Source, s.Line())
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
