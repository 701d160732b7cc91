package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/twardokus/sidelink"
	"github.com/twardokus/sidelink/pkg/devicefile"
	"github.com/twardokus/sidelink/pkg/phy"
	"github.com/twardokus/sidelink/pkg/sci"
	"gopkg.in/ini.v1"
)

type config struct {
	cell          phy.Cell
	scheduling    sci.Scheduling
	scrambling    phy.ScramblingPolicy
	device        sidelink.DeviceSpec
	txGain        float64
	txFrequency   float64
	standardRates bool
	maxSubframes  int
	seed          int64
	payloadListen string
	eventLogger   *slog.Logger
	eventLogFile  *os.File
	logLevel      string
	logPath       string
	logRoot       string
	metricsAddr   string
}

// countFlag counts how often a boolean flag is given, for -v -v.
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) IsBoolFlag() bool { return true }
func (c *countFlag) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if v {
		*c++
	}
	return nil
}

// flagOverrides copies command line flags that were actually given into the
// ini file sections, so both sources go through the same parsing.
func flagOverrides(cfg *ini.File) {
	keys := map[string][2]string{
		"p": {"Cell", "PRB"},
		"c": {"Cell", "SidelinkID"},
		"t": {"Cell", "TransmissionMode"},
		"d": {"Radio", "Device"},
		"a": {"Radio", "Args"},
		"g": {"Radio", "Gain"},
		"f": {"Radio", "Frequency"},
		"A": {"Radio", "Antennas"},
		"n": {"General", "Subframes"},
		"s": {"Scheduling", "Seed"},
	}
	flag.Visit(func(f *flag.Flag) {
		if k, ok := keys[f.Name]; ok {
			cfg.Section(k[0]).Key(k[1]).SetValue(f.Value.String())
		}
	})
	if *extendedCPArg {
		cfg.Section("Cell").Key("CyclicPrefix").SetValue("extended")
	}
	if *standardRatesArg {
		cfg.Section("Radio").Key("StandardRates").SetValue("true")
	}
	if verbosity > 0 {
		cfg.Section("Log").Key("Level").SetValue("DEBUG")
	}
}

func setDefault(sec *ini.Section, key, val string) {
	if !sec.HasKey(key) {
		sec.Key(key).SetValue(val)
	}
}

func applyDefaults(cfg *ini.File) {
	cell := cfg.Section("Cell")
	setDefault(cell, "PRB", "50")
	setDefault(cell, "SidelinkID", "0")
	setDefault(cell, "TransmissionMode", "4")
	setDefault(cell, "CyclicPrefix", "normal")

	radio := cfg.Section("Radio")
	setDefault(radio, "Device", "null")
	setDefault(radio, "Gain", "50")
	setDefault(radio, "Frequency", "5.92e9")
	setDefault(radio, "Antennas", "1")
	setDefault(radio, "StandardRates", "false")

	sched := cfg.Section("Scheduling")
	setDefault(sched, "SubChannelStart", "0")
	setDefault(sched, "DataMCS", "4")
	setDefault(sched, "Priority", "0")
	setDefault(sched, "ResourceReservation", "0")
	setDefault(sched, "TimeGap", "0")
	setDefault(sched, "Retransmission", "false")
	setDefault(sched, "TransmissionFormat", "false")
	setDefault(sched, "FrequencyHopping", "false")
	setDefault(sched, "TimeResourcePattern", "0")
	setDefault(sched, "TimingAdvance", "0")
	setDefault(sched, "GroupDestinationID", "0")
	setDefault(sched, "ScramblingID", "derived")
	setDefault(sched, "Seed", "0")

	setDefault(cfg.Section("General"), "Subframes", "0")
	setDefault(cfg.Section("Log"), "Level", "INFO")
}

func loadConfig(iniFile string) (config, error) {
	log.Printf("[INFO] Loading settings from '%s'", iniFile)
	cfg, err := ini.LooseLoad(iniFile)
	if err != nil {
		return config{}, fmt.Errorf("fail to read config from %s: %w", iniFile, err)
	}
	flagOverrides(cfg)
	applyDefaults(cfg)

	cellSec := cfg.Section("Cell")
	prb, prbErr := cellSec.Key("PRB").Int()
	sidelinkID, sidelinkIDErr := cellSec.Key("SidelinkID").Int()
	tm, tmErr := cellSec.Key("TransmissionMode").Int()
	var cp phy.CyclicPrefix
	var cpErr error
	switch cellSec.Key("CyclicPrefix").In("BAD", []string{"normal", "extended"}) {
	case "normal":
		cp = phy.CPNormal
	case "extended":
		cp = phy.CPExtended
	default:
		cpErr = fmt.Errorf("bad CyclicPrefix: %s", cellSec.Key("CyclicPrefix").String())
	}
	if tmErr == nil && (tm < 1 || tm > 4) {
		tmErr = fmt.Errorf("sidelink transmission mode %d must be one of 1, 2, 3 or 4", tm)
	}
	cell := phy.Cell{PRB: prb, CP: cp, TM: phy.TransmissionMode(tm), SidelinkID: sidelinkID}
	var cellErr, poolErr error
	var pool phy.ResourcePool
	cellOK := false
	if err := errors.Join(prbErr, sidelinkIDErr, tmErr, cpErr); err == nil {
		cellErr = cell.Validate()
		if cellErr == nil {
			pool, poolErr = phy.NewResourcePool(cell)
			cellOK = poolErr == nil
		}
	}

	radioSec := cfg.Section("Radio")
	txGain, txGainErr := radioSec.Key("Gain").Float64()
	txFrequency, txFrequencyErr := radioSec.Key("Frequency").Float64()
	antennas, antennasErr := radioSec.Key("Antennas").Int()
	standardRates, standardRatesErr := radioSec.Key("StandardRates").Bool()
	if txFrequencyErr == nil && txFrequency <= 0 {
		txFrequencyErr = fmt.Errorf("configured Frequency %f must be positive", txFrequency)
	}
	if antennasErr == nil && antennas != 1 {
		antennasErr = fmt.Errorf("configured Antennas %d: only single antenna transmission is supported", antennas)
	}
	device, deviceErr := resolveDevice(cfg, antennas)

	schedSec := cfg.Section("Scheduling")
	sched, schedErr := loadScheduling(schedSec, cell, pool, cellOK)
	scrambling, scramblingErr := parseScrambling(schedSec.Key("ScramblingID").String())
	seed, seedErr := schedSec.Key("Seed").Int64()
	payloadListen := schedSec.Key("PayloadListen").String()
	maxSubframes, maxSubframesErr := cfg.Section("General").Key("Subframes").Int()

	logLevel := strings.ToUpper(cfg.Section("Log").Key("Level").String())
	var logLevelErr error
	if logLevel != "ERROR" && logLevel != "INFO" && logLevel != "DEBUG" {
		logLevelErr = fmt.Errorf("configured Log Level must be one of ERROR, INFO or DEBUG")
	}

	eventLog := cfg.Section("General").Key("EventLog").String()
	var eventLogFile *os.File
	var eventLogErr error
	var eventLogger *slog.Logger
	if eventLog != "" {
		eventLogFile, eventLogErr = os.OpenFile(eventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if eventLogFile != nil {
			opts := &slog.HandlerOptions{
				ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
					if a.Key == slog.LevelKey || a.Key == slog.MessageKey {
						return slog.Attr{} // Remove the attribute
					}
					return a
				},
			}
			eventLogger = slog.New(slog.NewJSONHandler(eventLogFile, opts))
		}
	}

	err = errors.Join(
		prbErr,
		sidelinkIDErr,
		tmErr,
		cpErr,
		cellErr,
		poolErr,
		txGainErr,
		txFrequencyErr,
		antennasErr,
		standardRatesErr,
		deviceErr,
		schedErr,
		scramblingErr,
		seedErr,
		maxSubframesErr,
		logLevelErr,
		eventLogErr,
	)

	return config{
		cell:          cell,
		scheduling:    sched,
		scrambling:    scrambling,
		device:        device,
		txGain:        txGain,
		txFrequency:   txFrequency,
		standardRates: standardRates,
		maxSubframes:  maxSubframes,
		seed:          seed,
		payloadListen: payloadListen,
		eventLogger:   eventLogger,
		eventLogFile:  eventLogFile,
		logLevel:      logLevel,
		logPath:       cfg.Section("Log").Key("Path").String(),
		logRoot:       cfg.Section("Log").Key("Root").String(),
		metricsAddr:   cfg.Section("Metrics").Key("Addr").String(),
	}, err
}

// resolveDevice turns the configured device name into a backend spec,
// looking it up in the device file first.
func resolveDevice(cfg *ini.File, antennas int) (sidelink.DeviceSpec, error) {
	sec := cfg.Section("Radio")
	name := sec.Key("Device").String()
	args := sec.Key("Args").String()
	if path := sec.Key("DeviceFile").String(); path != "" {
		df, err := devicefile.NewDevicefile(path)
		if err != nil {
			return sidelink.DeviceSpec{}, err
		}
		if d, ok := df.Lookup(name); ok {
			log.Printf("[DEBUG] Device profile %s: %s %s", d.Name, d.Backend, d.Args)
			name = d.Backend
			args = strings.Trim(d.Args+","+args, ",")
		}
	}
	parsed, err := sidelink.ParseDeviceArgs(args)
	if err != nil {
		return sidelink.DeviceSpec{}, err
	}
	return sidelink.DeviceSpec{Name: name, Args: parsed, Channels: antennas}, nil
}

func loadScheduling(sec *ini.Section, cell phy.Cell, pool phy.ResourcePool, cellOK bool) (sci.Scheduling, error) {
	start, startErr := sec.Key("SubChannelStart").Int()
	count := pool.SubChannelCount - start
	var countErr error
	if sec.HasKey("SubChannelCount") {
		count, countErr = sec.Key("SubChannelCount").Int()
	}
	dataMCS, dataMCSErr := sec.Key("DataMCS").Int()
	priority, priorityErr := uintField(sec, "Priority", 3)
	reservation, reservationErr := uintField(sec, "ResourceReservation", 4)
	timeGap, timeGapErr := uintField(sec, "TimeGap", 4)
	retx, retxErr := sec.Key("Retransmission").Bool()
	txFormat, txFormatErr := sec.Key("TransmissionFormat").Bool()
	hopping, hoppingErr := sec.Key("FrequencyHopping").Bool()
	trp, trpErr := uintField(sec, "TimeResourcePattern", 7)
	ta, taErr := uintField(sec, "TimingAdvance", 11)
	groupID, groupIDErr := uintField(sec, "GroupDestinationID", 8)
	var riv uint64
	var rivErr error
	if sec.HasKey("RIV") {
		riv, rivErr = uintField(sec, "RIV", 32)
	}
	if dataMCSErr == nil && (dataMCS < 0 || dataMCS > phy.MaxPSSCHMCS) {
		dataMCSErr = fmt.Errorf("DataMCS %d is outside 0-%d", dataMCS, phy.MaxPSSCHMCS)
	}
	err := errors.Join(startErr, countErr, dataMCSErr, priorityErr, reservationErr, timeGapErr,
		retxErr, txFormatErr, hoppingErr, trpErr, taErr, groupIDErr, rivErr)
	if err != nil {
		return sci.Scheduling{}, err
	}
	s := sci.Scheduling{
		SubChannelStart:     start,
		SubChannelCount:     count,
		DataMCS:             dataMCS,
		Priority:            uint8(priority),
		ResourceReservation: uint8(reservation),
		TimeGap:             uint8(timeGap),
		Retransmission:      retx,
		TransmissionFormat:  txFormat,
		FrequencyHopping:    hopping,
		TimeResourcePattern: uint8(trp),
		TimingAdvance:       uint16(ta),
		GroupDestinationID:  uint8(groupID),
	}
	if !cellOK {
		return s, nil
	}
	switch {
	case sec.HasKey("RIV"):
		s.RIV = uint32(riv)
	case cell.TM.V2X():
		// Format 1 indicates sub-channels, format 0 PRBs.
		s.RIV, err = sci.ResourceIndication(pool.SubChannelCount, start, count)
	default:
		s.RIV, err = sci.ResourceIndication(cell.PRB, start*pool.SubChannelSize, count*pool.SubChannelSize)
	}
	if err != nil {
		return s, err
	}
	// The loop builds the same message again before opening the radio.
	if _, err := sci.Build(cell, pool, s); err != nil {
		return s, err
	}
	return s, nil
}

// uintField reads an unsigned SCI field of width bits from sec.
func uintField(sec *ini.Section, key string, width int) (uint64, error) {
	v, err := sec.Key(key).Uint64()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if width < 64 && v >= 1<<width {
		return 0, fmt.Errorf("%s = %d does not fit in %d bits", key, v, width)
	}
	return v, nil
}

func parseScrambling(v string) (phy.ScramblingPolicy, error) {
	if v == "" || strings.EqualFold(v, "derived") {
		return phy.ScramblingDerived, nil
	}
	id, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return phy.ScramblingPolicy{}, fmt.Errorf("ScramblingID must be 'derived' or 0 to 65535: %w", err)
	}
	return phy.ScramblingFixed(uint16(id)), nil
}
