package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Tag is the "t" discriminant of a control message (spec §4.4/§6).
type Tag string

const (
	TagPake           Tag = "pake"
	TagExternalIP     Tag = "externalip"
	TagFileInfo       Tag = "fileinfo"
	TagRecipientReady Tag = "recipientready"
	TagError          Tag = "error"
	TagFinished       Tag = "finished"
)

// ErrUnknownTag is returned when a decoded message carries a "t" value this
// implementation doesn't recognize. Per spec §4.4 this is always fatal.
var ErrUnknownTag = errors.New("protocol: unknown message tag")

// Message is the sum type of control messages exchanged on the encrypted
// channel. Each concrete type corresponds to exactly one Tag.
type Message interface {
	messageTag() Tag
}

// PakeMessage carries a serialized PakePubKey (B) plus either the ASCII
// curve name "siec" or an 8-byte AEAD salt (B2), per spec §4.6/§6.
type PakeMessage struct {
	B  []byte `json:"b"`
	B2 []byte `json:"b2"`
}

func (PakeMessage) messageTag() Tag { return TagPake }

// ExternalIPMessage reports the sender's externally observed IP.
type ExternalIPMessage struct {
	M string `json:"m"`
}

func (ExternalIPMessage) messageTag() Tag { return TagExternalIP }

// FileInfoMessage carries the full file manifest (spec §3/§6).
type FileInfoMessage struct {
	FilesToTransfer        []FileInfo `json:"FilesToTransfer"`
	EmptyFoldersToTransfer []string   `json:"EmptyFoldersToTransfer"`
	TotalNumberFolders     int        `json:"TotalNumberFolders"`
	MachineID              string     `json:"MachineID"`
	Ask                    bool       `json:"Ask"`
	SendingText            bool       `json:"SendingText"`
	NoCompress             bool       `json:"NoCompress"`
	HashAlgorithm          string     `json:"HashAlgorithm"`
}

func (FileInfoMessage) messageTag() Tag { return TagFileInfo }

// RecipientReadyMessage announces the receiver is ready for the chunks of
// one particular file in the manifest.
type RecipientReadyMessage struct {
	CurrentFileChunkRanges    []int64 `json:"CurrentFileChunkRanges"`
	FilesToTransferCurrentNum int     `json:"FilesToTransferCurrentNum"`
	MachineID                 string  `json:"MachineID"`
}

func (RecipientReadyMessage) messageTag() Tag { return TagRecipientReady }

// ErrorMessage is a fatal protocol-level error report (e.g. "refusing
// files").
type ErrorMessage struct {
	M string `json:"m"`
}

func (ErrorMessage) messageTag() Tag { return TagError }

// FinishedMessage has no payload; it closes out a transfer.
type FinishedMessage struct{}

func (FinishedMessage) messageTag() Tag { return TagFinished }

// Encode serializes m to its tagged-JSON wire form.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case PakeMessage:
		return json.Marshal(struct {
			T Tag `json:"t"`
			PakeMessage
		}{TagPake, v})
	case ExternalIPMessage:
		return json.Marshal(struct {
			T Tag `json:"t"`
			ExternalIPMessage
		}{TagExternalIP, v})
	case FileInfoMessage:
		return json.Marshal(struct {
			T Tag `json:"t"`
			FileInfoMessage
		}{TagFileInfo, v})
	case RecipientReadyMessage:
		return json.Marshal(struct {
			T Tag `json:"t"`
			RecipientReadyMessage
		}{TagRecipientReady, v})
	case ErrorMessage:
		return json.Marshal(struct {
			T Tag `json:"t"`
			ErrorMessage
		}{TagError, v})
	case FinishedMessage:
		return json.Marshal(struct {
			T Tag `json:"t"`
		}{TagFinished})
	default:
		return nil, fmt.Errorf("protocol: cannot encode message of type %T", m)
	}
}

// Decode inspects raw's "t" field and unmarshals into the matching
// concrete Message type. An unrecognized tag returns ErrUnknownTag.
func Decode(raw []byte) (Message, error) {
	var probe struct {
		T Tag `json:"t"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("protocol: decode message tag: %w", err)
	}

	switch probe.T {
	case TagPake:
		var wrapper struct {
			PakeMessage
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, err
		}
		return wrapper.PakeMessage, nil
	case TagExternalIP:
		var wrapper struct {
			ExternalIPMessage
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, err
		}
		return wrapper.ExternalIPMessage, nil
	case TagFileInfo:
		var wrapper struct {
			FileInfoMessage
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, err
		}
		return wrapper.FileInfoMessage, nil
	case TagRecipientReady:
		var wrapper struct {
			RecipientReadyMessage
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, err
		}
		return wrapper.RecipientReadyMessage, nil
	case TagError:
		var wrapper struct {
			ErrorMessage
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, err
		}
		return wrapper.ErrorMessage, nil
	case TagFinished:
		return FinishedMessage{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, probe.T)
	}
}
