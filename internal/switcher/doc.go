// Package switcher resolves human-friendly port names to the physical
// ports of the HDMI matrix and builds the command line the switch
// understands.
//
// A Switch holds, per direction, a fixed default mapping (every canonical
// port name maps to itself) and an ordered alias mapping filled from the
// configuration file. Lookups consult aliases first and fall back to the
// defaults, so an alias may shadow a canonical name.
//
// The wire format is a single line:
//
//	SET SW <input> <output>\n\r
package switcher
