package commands

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is
// not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// renderJSON marshals v with indentation and a trailing newline.
func renderJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// renderTable runs fn against a tabwriter and returns the flushed text.
func renderTable(fn func(w *tabwriter.Writer)) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 8, 2, ' ', 0)
	fn(w)
	w.Flush()
	return buf.String()
}

// deviceRow is the JSON projection of one discovered device.
type deviceRow struct {
	Host   string `json:"host"`
	MAC    string `json:"mac"`
	Type   string `json:"type"`
	Family string `json:"family"`
	Name   string `json:"name"`
	Locked bool   `json:"locked"`
}

func deviceRows(devices []*broadlink.Device) []deviceRow {
	rows := make([]deviceRow, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, deviceRow{
			Host:   d.Host().Addr().String(),
			MAC:    broadlink.CanonicalMAC(d.MAC()),
			Type:   fmt.Sprintf("0x%04x", d.DeviceType()),
			Family: d.Family().String(),
			Name:   d.Name(),
			Locked: d.Locked(),
		})
	}
	return rows
}

// formatDevices renders a device list in the requested format.
func formatDevices(devices []*broadlink.Device, format string) (string, error) {
	rows := deviceRows(devices)
	switch format {
	case formatJSON:
		return renderJSON(rows)
	case formatTable:
		return renderTable(func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "HOST\tMAC\tTYPE\tFAMILY\tNAME\tLOCKED")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
					r.Host, r.MAC, r.Type, r.Family, r.Name, r.Locked)
			}
		}), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatPower renders a single power state.
func formatPower(on bool, format string) (string, error) {
	switch format {
	case formatJSON:
		return renderJSON(map[string]bool{"power": on})
	case formatTable:
		if on {
			return "on\n", nil
		}
		return "off\n", nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatSockets renders the MP1 per-socket states.
func formatSockets(states [broadlink.MP1Sockets]bool, format string) (string, error) {
	switch format {
	case formatJSON:
		return renderJSON(states[:])
	case formatTable:
		return renderTable(func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "SOCKET\tSTATE")
			for i, on := range states {
				state := "off"
				if on {
					state = "on"
				}
				fmt.Fprintf(w, "%d\t%s\n", i+1, state)
			}
		}), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatEnergy renders an energy meter reading.
func formatEnergy(kwh float64, format string) (string, error) {
	switch format {
	case formatJSON:
		return renderJSON(map[string]float64{"energy_kwh": kwh})
	case formatTable:
		return fmt.Sprintf("%.2f kWh\n", kwh), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatSensorReading renders an RM sensor read.
func formatSensorReading(r *broadlink.SensorReading, format string) (string, error) {
	switch format {
	case formatJSON:
		return renderJSON(map[string]float64{
			"temperature": r.Temperature,
			"humidity":    r.Humidity,
		})
	case formatTable:
		return renderTable(func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "temperature\t%.1f °C\n", r.Temperature)
			fmt.Fprintf(w, "humidity\t%.1f %%\n", r.Humidity)
		}), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatA1Reading renders the full A1 sensor set.
func formatA1Reading(r *broadlink.A1Reading, format string) (string, error) {
	switch format {
	case formatJSON:
		return renderJSON(map[string]any{
			"temperature": r.Temperature,
			"humidity":    r.Humidity,
			"light":       r.LightName(),
			"air_quality": r.AirQualityName(),
			"noise":       r.NoiseName(),
		})
	case formatTable:
		return renderTable(func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "temperature\t%.1f °C\n", r.Temperature)
			fmt.Fprintf(w, "humidity\t%.1f %%\n", r.Humidity)
			fmt.Fprintf(w, "light\t%s\n", r.LightName())
			fmt.Fprintf(w, "air quality\t%s\n", r.AirQualityName())
			fmt.Fprintf(w, "noise\t%s\n", r.NoiseName())
		}), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatBulbState renders the bulb state document.
func formatBulbState(s *broadlink.BulbState, format string) (string, error) {
	switch format {
	case formatJSON:
		return renderJSON(s)
	case formatTable:
		return renderTable(func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "pwr\t%d\n", s.Pwr)
			fmt.Fprintf(w, "brightness\t%d\n", s.Brightness)
			fmt.Fprintf(w, "colormode\t%d\n", s.ColorMode)
			fmt.Fprintf(w, "rgb\t%d %d %d\n", s.Red, s.Green, s.Blue)
			fmt.Fprintf(w, "hue\t%d\n", s.Hue)
			fmt.Fprintf(w, "saturation\t%d\n", s.Saturation)
			fmt.Fprintf(w, "colortemp\t%d\n", s.ColorTemp)
		}), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatSubdevices renders the hub's sub-device list.
func formatSubdevices(subdevices []broadlink.HubSubdevice, format string) (string, error) {
	switch format {
	case formatJSON:
		return renderJSON(subdevices)
	case formatTable:
		return renderTable(func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "DID\tNAME\tTYPE")
			for _, s := range subdevices {
				fmt.Fprintf(w, "%s\t%s\t%d\n", s.DID, s.Name, s.Type)
			}
		}), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatHubState renders one sub-device's switch state.
func formatHubState(s *broadlink.HubState, format string) (string, error) {
	switch format {
	case formatJSON:
		return renderJSON(s)
	case formatTable:
		return renderTable(func(w *tabwriter.Writer) {
			writeHubField(w, "pwr", s.Pwr)
			writeHubField(w, "pwr1", s.Pwr1)
			writeHubField(w, "pwr2", s.Pwr2)
		}), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func writeHubField(w *tabwriter.Writer, name string, v *int) {
	if v == nil {
		return
	}
	fmt.Fprintf(w, "%s\t%d\n", name, *v)
}

// formatCodes renders the stored capture list.
func formatCodes(records []CodeRecord, format string) (string, error) {
	switch format {
	case formatJSON:
		return renderJSON(records)
	case formatTable:
		return renderTable(func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "NAME\tMODALITY\tBYTES\tCAPTURED\tDATA")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					r.Name, r.Modality, len(r.Data),
					r.CapturedAt.Format("2006-01-02 15:04"),
					truncateHex(r.Data, 16))
			}
		}), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// truncateHex renders up to n bytes of data as hex, with an ellipsis
// when truncated.
func truncateHex(data []byte, n int) string {
	if len(data) <= n {
		return hex.EncodeToString(data)
	}
	return hex.EncodeToString(data[:n]) + "..."
}
