// Package protocol defines the JSON frames exchanged over a document sync
// connection.
//
// Inbound frames decode into a closed set of variants implementing Message.
// Callers dispatch with a type switch over the concrete types:
//
//	msg, err := protocol.Decode(frame)
//	if err != nil {
//	    // reply with an error frame
//	}
//	switch m := msg.(type) {
//	case protocol.JoinDocument:
//	case protocol.TextUpdate:
//	case protocol.CursorUpdate:
//	case protocol.RequestAnalytics:
//	case protocol.Unknown:
//	}
//
// A frame that is not a JSON object is malformed. A well-formed frame with an
// unrecognized type decodes to Unknown and is not an error.
package protocol
