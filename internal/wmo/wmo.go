// Package wmo decodes the WMO abbreviated-heading envelope carried by every
// NWWS-OI XMPP stanza (the "nwws-oi" message extension) and classifies
// AWIPS product identifiers into a (phenomenon, significance) pair. The
// pipeline uses this to fill event_name for products that carry no VTEC
// line.
package wmo

import (
	"encoding/xml"

	"gosrc.io/xmpp/stanza"
)

/*
Documentation:
* https://www.weather.gov/nwws/configuration
* https://www.weather.gov/tg/head

Example Message Format:
<message to='enduser@server/laptop' type='groupchat' from='nwws@nwws-oi.weather.gov/nwws-oi'>

<body>KARX issues RR8 valid 2013-05-25T02:20:34Z</body>

<html xmlns='http://jabber.org/protocol/xhtml-im'>

<body xmlns='http://www.w3.org/1999/xhtml'>KARX issues RR8 valid 2013-05-25T02:20:34Z</body>

</html>

<x xmlns='nwws-oi' cccc='KARX' ttaaii='SRUS83' issue='2013-05-25T02:20:34Z' awipsid='RR8ARX' id='10313.6'>

111

# SRUS83 KARX 250220

# RR8ARX

:

: AUTOMATED GAUGE DATA COLLECTED FROM IOWA FLOOD CENTER

:

.A CDGI4 20130524 C DH2100/HGIRP 2.63 : MORGAN CREEK NEAR CEDAR RAPIDS

</x>

</message>
*/

type NWWSOIMessageXExtension struct {
	stanza.MsgExtension
	XMLName xml.Name `xml:"nwws-oi x"`
	Text    string   `xml:",chardata"`
	// Four character issuing center
	Cccc string `xml:"cccc,attr"`
	// The six character WMO product ID - https://community.wmo.int/en/data-designators-t1t2aia2ii-cccc
	Ttaaii string `xml:"ttaaii,attr"`
	// ISO_8601 datetime in UTC
	Issue string `xml:"issue,attr"`
	// The six character AWIPS ID, sometimes called AFOS PIL.
	AwipsID string `xml:"awipsid,attr"`
	// The id attribute on the <x> stanza is meant to help clients know if they
	// are missing any products as they parse the stream.  The id contains two
	// values loaded up into one and they are separated by a period. The first
	// number is the UNIX process ID on the system running the ingest process.
	// The second number is a simple incremented sequence number for the product.
	ID string `xml:"id,attr"`
}

// AWIPSProductID is the parsed AWIPS identifier (NNNxxx): NNN is the
// 3-character product category, xxx the 1-3 character geographic designator.
type AWIPSProductID struct {
	NNN string
	XXX string
}

// phenomenonByNNN maps the 3-character AWIPS product category to the
// (phenomenon, significance) pair the pipeline's event catalog expects, for
// the subset of products that never carry a VTEC line (spec.md §4.1 step 4).
var phenomenonByNNN = map[string][2]string{
	"SPS": {"SPS", ""},
	"SVS": {"SVS", ""},
	"FLS": {"FA", "S"},
	"HML": {"FA", "S"},
}

// ClassifyPhenomenon resolves (phenomenon, significance) from an AWIPS
// product id for VTEC-less products. ok is false when the id's category has
// no known phenomenon mapping.
func (a *AWIPSProductID) ClassifyPhenomenon() (phenomenon, significance string, ok bool) {
	if a == nil {
		return "", "", false
	}
	pair, found := phenomenonByNNN[a.NNN]
	if !found {
		return "", "", false
	}
	return pair[0], pair[1], true
}

func init() {
	stanza.TypeRegistry.MapExtension(stanza.PKTMessage, xml.Name{Space: "nwws-oi", Local: "x"}, NWWSOIMessageXExtension{})
}
