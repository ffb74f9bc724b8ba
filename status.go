package main

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"safetycarbot/pkg/helper"
	"safetycarbot/pkg/settings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jedib0t/go-pretty/v6/table"
)

func sendStatus(chatId int64) error {
	generatorMu.Lock()
	gen := activeGenerator
	generatorMu.Unlock()

	if gen == nil {
		return reply(chatId, "Generator is not running, use /run to start it")
	}

	snap := gen.Snapshot()

	var b bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.SetStyle(table.StyleRounded)
	t.AppendSeparator()
	t.AppendHeader(table.Row{"FIELD", "VALUE"})
	t.AppendRow(table.Row{"State", snap.State})
	t.AppendRow(table.Row{"Race time", helper.SecondsToMinutesAndSeconds(snap.ElapsedSeconds)})
	t.AppendRow(table.Row{"Events", fmt.Sprintf("%d/%d", snap.SafetyCarEvents, snap.MaxSafetyCars)})
	t.AppendRow(table.Row{"Random events", snap.RandomEvents})
	t.AppendRow(table.Row{"Stopped cars", snap.StoppedCount})
	t.AppendRow(table.Row{"Off-track cars", snap.OffTrackCount})
	t.AppendRow(table.Row{"Towed cars", helper.JoinCarNumbers(snap.TowedCars)})
	t.AppendRow(table.Row{"Penalty flags", helper.JoinCarNumbers(snap.FlaggedCars)})
	if dryRunSink != nil {
		t.AppendRow(table.Row{"Dry-run commands", len(dryRunSink.Sent)})
	}
	if snap.Event != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Trigger", snap.Event.Reason})
		t.AppendRow(table.Row{"Trigger lap", snap.Event.TriggerLap})
		t.AppendRow(table.Row{"Lap under SC", snap.Event.LapUnderSC})
		t.AppendRow(table.Row{"Waves sent", snap.Event.WaveSent})
		t.AppendRow(table.Row{"Pace signal", snap.Event.PaceSignalSent})
	}
	t.Render()

	return replyMonospace(chatId, "Generator status", b.String())
}

func sendSettings(chatId int64) error {
	cfg, err := settingsManager.Load()
	if err != nil {
		return reply(chatId, "Settings are invalid: "+err.Error())
	}

	var b bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.SetStyle(table.StyleRounded)
	t.AppendSeparator()
	t.AppendHeader(table.Row{"SETTING", "VALUE"})
	t.AppendRow(table.Row{"max_sc", cfg.MaxSafetyCars})
	t.AppendRow(table.Row{"start_minute", cfg.StartMinute})
	t.AppendRow(table.Row{"end_minute", cfg.EndMinute})
	t.AppendRow(table.Row{"min_between", cfg.MinMinutesBetween})
	t.AppendSeparator()
	t.AppendRow(table.Row{"random", helper.OnOff(cfg.RandomEnabled)})
	t.AppendRow(table.Row{"random_prob", cfg.RandomProb})
	t.AppendRow(table.Row{"random_max", cfg.RandomMaxOcc})
	t.AppendRow(table.Row{"stopped", helper.OnOff(cfg.StoppedEnabled)})
	t.AppendRow(table.Row{"stopped_cars", cfg.StoppedCarsThreshold})
	t.AppendRow(table.Row{"offtrack", helper.OnOff(cfg.OffTrackEnabled)})
	t.AppendRow(table.Row{"offtrack_cars", cfg.OffTrackCarsThreshold})
	t.AppendSeparator()
	t.AppendRow(table.Row{"start_multi", cfg.StartMultiplier})
	t.AppendRow(table.Row{"start_multi_secs", cfg.StartMultiplierSeconds})
	t.AppendRow(table.Row{"proximity", helper.OnOff(cfg.ProximityEnabled)})
	t.AppendRow(table.Row{"proximity_pct", cfg.ProximityDistancePct})
	t.AppendSeparator()
	t.AppendRow(table.Row{"wave_arounds", helper.OnOff(cfg.AutoWaveArounds)})
	t.AppendRow(table.Row{"laps_before_wave", cfg.LapsBeforeWaveArounds})
	t.AppendRow(table.Row{"laps_under_sc", cfg.LapsUnderSafetyCar})
	t.Render()

	return replyMonospace(chatId, "Generator settings", b.String())
}

// applySetting updates one named setting. The new value set is validated
// before it is persisted, an invalid combination leaves the stored settings
// untouched.
func applySetting(chatId int64, arguments string) error {
	fields := strings.Fields(arguments)
	if len(fields) != 2 {
		return reply(chatId, "Usage: /set <name> <value>, see /settings for names")
	}
	name, value := fields[0], fields[1]

	cfg, err := settingsManager.Load()
	if err != nil {
		return reply(chatId, "Settings are invalid: "+err.Error())
	}

	if err := assignSetting(&cfg, name, value); err != nil {
		return reply(chatId, err.Error())
	}
	if err := settingsManager.Save(cfg); err != nil {
		return reply(chatId, "Rejected: "+err.Error())
	}
	return reply(chatId, fmt.Sprintf("Setting %q updated to %q, restart the generator to apply", name, value))
}

func assignSetting(cfg *settings.Settings, name, value string) error {
	parseInt := func() (int, error) {
		v, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", value)
		}
		return v, nil
	}
	parseFloat := func() (float64, error) {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", value)
		}
		return v, nil
	}
	parseBool := func() (bool, error) {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", value)
		}
		return v, nil
	}

	var err error
	switch name {
	case "max_sc":
		cfg.MaxSafetyCars, err = parseInt()
	case "start_minute":
		cfg.StartMinute, err = parseFloat()
	case "end_minute":
		cfg.EndMinute, err = parseFloat()
	case "min_between":
		cfg.MinMinutesBetween, err = parseFloat()
	case "random":
		cfg.RandomEnabled, err = parseBool()
	case "random_prob":
		cfg.RandomProb, err = parseFloat()
	case "random_max":
		cfg.RandomMaxOcc, err = parseInt()
	case "stopped":
		cfg.StoppedEnabled, err = parseBool()
	case "stopped_cars":
		cfg.StoppedCarsThreshold, err = parseInt()
	case "offtrack":
		cfg.OffTrackEnabled, err = parseBool()
	case "offtrack_cars":
		cfg.OffTrackCarsThreshold, err = parseInt()
	case "start_multi":
		cfg.StartMultiplier, err = parseFloat()
	case "start_multi_secs":
		cfg.StartMultiplierSeconds, err = parseFloat()
	case "proximity":
		cfg.ProximityEnabled, err = parseBool()
	case "proximity_pct":
		cfg.ProximityDistancePct, err = parseFloat()
	case "wave_arounds":
		cfg.AutoWaveArounds, err = parseBool()
	case "laps_before_wave":
		cfg.LapsBeforeWaveArounds, err = parseInt()
	case "laps_under_sc":
		cfg.LapsUnderSafetyCar, err = parseInt()
	default:
		return fmt.Errorf("unknown setting %q, see /settings for names", name)
	}
	return err
}

func replyMonospace(chatId int64, title, body string) error {
	msg := tgbotapi.NewMessage(chatId, fmt.Sprintf("```\n%s\n\n%s```", title, body))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := bot.Send(msg)
	return err
}
