// Package devicefile reads named radio device profiles.
//
// Each line holds a profile name, a backend and optional backend arguments,
// separated by spaces:
//
//	bridge serial port=/dev/ttyUSB0,speed=460800
package devicefile

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
)

type Devicefile struct {
	Devices map[string]Device
}

func NewDevicefile(name string) (*Devicefile, error) {
	log.Printf("[DEBUG] Loading devicefile: %s", name)
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("unable to open devicefile %s: %v", name, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = ' '
	r.Comment = '#'
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read devicefile %s: %v", name, err)
	}
	ret := &Devicefile{
		Devices: make(map[string]Device),
	}
	for i, rec := range recs {
		if len(rec) < 2 || len(rec) > 3 {
			return nil, fmt.Errorf("devicefile %s record %d: want 2 or 3 fields, got %d", name, i+1, len(rec))
		}
		d := Device{
			Name:    rec[0],
			Backend: rec[1],
		}
		if len(rec) == 3 {
			d.Args = rec[2]
		}
		ret.Devices[d.Name] = d
	}
	return ret, nil
}

// Lookup returns the profile called name.
func (f *Devicefile) Lookup(name string) (Device, bool) {
	if f == nil {
		return Device{}, false
	}
	d, ok := f.Devices[name]
	return d, ok
}

type Device struct {
	Name    string
	Backend string
	Args    string
}
