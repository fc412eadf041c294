// Package endpoints holds the fixed table of upstream data feeds the API
// proxy is allowed to fetch.
package endpoints

import "sort"

// Table maps a short endpoint name to its upstream URL. It is built once at
// startup and never mutated afterwards, so concurrent reads need no locking.
type Table map[string]string

// Default returns the endpoint table for live OpenHamClock data.
func Default() Table {
	return Table{
		"solarflux": "https://services.swpc.noaa.gov/json/solar-cycle/observed-solar-flux.json",
		"kindex":    "https://services.swpc.noaa.gov/json/planetary_k_index_1m.json",
		"xray":      "https://services.swpc.noaa.gov/json/goes/primary/xrays-7-day.json",
		"sunspots":  "https://services.swpc.noaa.gov/json/solar-cycle/sunspots.json",
		"pota":      "https://api.pota.app/spot/activator",
		"bands":     "https://www.hamqsl.com/solarxml.php", // HamQSL solar data (XML)
	}
}

// Resolve looks up the upstream URL for an endpoint name.
func (t Table) Resolve(name string) (string, bool) {
	url, ok := t[name]
	return url, ok
}

// Names returns all endpoint names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
