package main

import (
	"reflect"
	"testing"

	"github.com/twardokus/sidelink"
	"github.com/twardokus/sidelink/pkg/phy"
	"github.com/twardokus/sidelink/pkg/sci"
	"gopkg.in/ini.v1"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("testdata/good.ini")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	wantCell := phy.Cell{PRB: 25, CP: phy.CPNormal, TM: phy.TM3}
	if cfg.cell != wantCell {
		t.Errorf("cell = %v, want %v", cfg.cell, wantCell)
	}
	wantSched := sci.Scheduling{SubChannelStart: 1, SubChannelCount: 2, DataMCS: 12, RIV: 6}
	if !reflect.DeepEqual(cfg.scheduling, wantSched) {
		t.Errorf("scheduling = %#v, want %#v", cfg.scheduling, wantSched)
	}
	if cfg.scrambling != phy.ScramblingFixed(255) {
		t.Errorf("scrambling = %v, want fixed 255", cfg.scrambling)
	}
	wantDevice := sidelink.DeviceSpec{
		Name:     "file",
		Args:     map[string]string{"path": "/tmp/sltx.cf32", "append": "true"},
		Channels: 1,
	}
	if !reflect.DeepEqual(cfg.device, wantDevice) {
		t.Errorf("device = %#v, want %#v", cfg.device, wantDevice)
	}
	if cfg.txGain != 50 || cfg.txFrequency != 5.9e9 {
		t.Errorf("gain, frequency = %f, %f, want 50, 5.9e9", cfg.txGain, cfg.txFrequency)
	}
	if cfg.maxSubframes != 10 {
		t.Errorf("maxSubframes = %d, want 10", cfg.maxSubframes)
	}
	if cfg.logLevel != "DEBUG" {
		t.Errorf("logLevel = %s, want DEBUG", cfg.logLevel)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("testdata/missing.ini")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	wantCell := phy.Cell{PRB: 50, CP: phy.CPNormal, TM: phy.TM4}
	if cfg.cell != wantCell {
		t.Errorf("cell = %v, want %v", cfg.cell, wantCell)
	}
	// all five sub-channels of the 50 PRB pool
	if cfg.scheduling.SubChannelCount != 5 || cfg.scheduling.RIV != 9 {
		t.Errorf("scheduling = %#v, want 5 sub-channels, RIV 9", cfg.scheduling)
	}
	if cfg.scheduling.DataMCS != 4 {
		t.Errorf("DataMCS = %d, want 4", cfg.scheduling.DataMCS)
	}
	if cfg.scrambling != phy.ScramblingDerived {
		t.Errorf("scrambling = %v, want derived", cfg.scrambling)
	}
	if cfg.device.Name != "null" {
		t.Errorf("device = %s, want null", cfg.device.Name)
	}
	if cfg.txFrequency != 5.92e9 {
		t.Errorf("txFrequency = %f, want 5.92e9", cfg.txFrequency)
	}
}

func TestLoadConfigBad(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"Cell and radio", "testdata/bad.ini"},
		// Priority=257, GroupDestinationID=300
		{"Wide SCI fields", "testdata/wide_fields.ini"},
		{"Data MCS", "testdata/bad_mcs.ini"},
		// 5 sub-channels leave 4 RIV bits
		{"Wide RIV", "testdata/wide_riv.ini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(tt.file)
			if err == nil {
				t.Errorf("loadConfig() want error, scheduling = %#v", cfg.scheduling)
			}
		})
	}
}

func Test_parseScrambling(t *testing.T) {
	tests := []struct {
		in      string
		want    phy.ScramblingPolicy
		wantErr bool
	}{
		{"", phy.ScramblingDerived, false},
		{"Derived", phy.ScramblingDerived, false},
		{"255", phy.ScramblingFixed(255), false},
		{"0", phy.ScramblingFixed(0), false},
		{"65536", phy.ScramblingPolicy{}, true},
		{"abc", phy.ScramblingPolicy{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseScrambling(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseScrambling() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("parseScrambling() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_uintField(t *testing.T) {
	sec := ini.Empty().Section("Scheduling")
	sec.Key("Priority").SetValue("7")
	sec.Key("GroupDestinationID").SetValue("300")
	sec.Key("TimingAdvance").SetValue("-1")
	tests := []struct {
		key     string
		width   int
		want    uint64
		wantErr bool
	}{
		{"Priority", 3, 7, false},
		{"Priority", 2, 0, true},
		{"GroupDestinationID", 8, 0, true},
		{"GroupDestinationID", 16, 300, false},
		{"TimingAdvance", 11, 0, true},
	}
	for _, tt := range tests {
		got, err := uintField(sec, tt.key, tt.width)
		if (err != nil) != tt.wantErr {
			t.Errorf("uintField(%s, %d) error = %v, wantErr %v", tt.key, tt.width, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("uintField(%s, %d) = %d, want %d", tt.key, tt.width, got, tt.want)
		}
	}
}
