package tr064

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const serviceTypePrefix = "urn:dslforum-org:service:"

func serviceType(service string) string {
	if strings.HasPrefix(service, "urn:") {
		return service
	}
	return serviceTypePrefix + service
}

func soapAction(service, action string) string {
	return `"` + serviceType(service) + "#" + action + `"`
}

func envelope(service, action string) []byte {
	var b bytes.Buffer

	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	b.WriteString(`<s:Body><u:`)
	b.WriteString(action)
	b.WriteString(` xmlns:u="`)
	_ = xml.EscapeText(&b, []byte(serviceType(service)))
	b.WriteString(`"></u:`)
	b.WriteString(action)
	b.WriteString(`></s:Body></s:Envelope>`)

	return b.Bytes()
}

type soapFault struct {
	FaultString string `xml:"faultstring"`
	Detail      struct {
		UPnPError struct {
			ErrorCode        string `xml:"errorCode"`
			ErrorDescription string `xml:"errorDescription"`
		} `xml:"UPnPError"`
	} `xml:"detail"`
}

// decodeResponse reads a SOAP envelope and returns the children of the action
// response element as a field map. A SOAP fault is returned as *Fault.
func decodeResponse(r io.Reader, action string) (map[string]string, error) {
	dec := xml.NewDecoder(r)

	inBody := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, errors.New("no response element in SOAP body")
		}
		if err != nil {
			return nil, err
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch {
		case !inBody && se.Name.Local == "Body":
			inBody = true
		case inBody && se.Name.Local == "Fault":
			var f soapFault
			if err := dec.DecodeElement(&f, &se); err != nil {
				return nil, err
			}
			return nil, &Fault{
				Code:        f.Detail.UPnPError.ErrorCode,
				Description: firstNonEmpty(f.Detail.UPnPError.ErrorDescription, f.FaultString),
			}
		case inBody:
			if se.Name.Local != action+"Response" {
				return nil, fmt.Errorf("unexpected element %s in SOAP body", se.Name.Local)
			}
			return decodeFields(dec)
		}
	}
}

func decodeFields(dec *xml.Decoder) (map[string]string, error) {
	fields := make(map[string]string)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var v string
			if err := dec.DecodeElement(&v, &t); err != nil {
				return nil, err
			}
			fields[t.Name.Local] = v
		case xml.EndElement:
			return fields, nil
		}
	}
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
