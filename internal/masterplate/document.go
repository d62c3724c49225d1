// Package masterplate serializes reconciled plates into the LIMS master-plate
// XML document consumed by the Kraken instrument.
package masterplate

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"krakenexport/pkg/plate"
)

// Header is the declaration written ahead of the root element.
const Header = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>` + "\n"

// ContentType is the media type used when storing the document.
const ContentType = "application/xml"

// Document is the root <LIMS> element.
type Document struct {
	XMLName xml.Name `xml:"LIMS"`
	Masters []Master `xml:"MASTER_PLATES>MASTER"`
}

// Master describes one plate.
type Master struct {
	Plate   string `xml:"Plate"`
	Density string `xml:"Density"`
	Alias   string `xml:"Alias"`
	Barcode string `xml:"Barcode"`
	Wells   []Well `xml:"Well"`
}

// Well is one position on a master plate.
type Well struct {
	Location  string `xml:"Location"`
	SubjectID string `xml:"Subject_id"`
	LongID    string `xml:"long_id"`
	Class     string `xml:"class,omitempty"`
}

// BuildOptions configures rendering.
type BuildOptions struct {
	// ExcelSource qualifies long_id with the plate id for order-form runs.
	ExcelSource bool
}

// Build maps reconciled plates onto the document structure. Plates keep
// their input order; wells are always emitted A01..H12.
func Build(plates []plate.Plate, opts BuildOptions) Document {
	doc := Document{Masters: make([]Master, 0, len(plates))}
	density := strconv.Itoa(plate.Density)
	for _, p := range plates {
		m := Master{
			Plate:   p.ID,
			Density: density,
			Wells:   make([]Well, 0, plate.Density),
		}
		for _, w := range p.Wells {
			m.Wells = append(m.Wells, Well{
				Location:  w.Location,
				SubjectID: w.SubjectID,
				LongID:    w.LongID(p.ID, opts.ExcelSource),
				Class:     string(w.Class),
			})
		}
		doc.Masters = append(doc.Masters, m)
	}
	return doc
}

// WellCount returns the number of Well elements across all plates.
func (d Document) WellCount() int {
	n := 0
	for _, m := range d.Masters {
		n += len(m.Wells)
	}
	return n
}

// Encode writes the declaration followed by the indented document.
func (d Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode master plates: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Bytes renders the full document in memory.
func (d Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a master-plate document.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode master plates: %w", err)
	}
	return doc, nil
}
