package actor

// RemoteEnvelope is the plain, serialization-friendly wire form of a
// PriorityEnvelope (spec §3/§6): a transport encodes/decodes exactly this
// shape, with Payload already marshaled by whatever codec the host
// application chooses (this module takes no position on wire format itself,
// per the transport Non-goal — see DESIGN.md).
type RemoteEnvelope struct {
	Priority int8
	Channel  uint8
	Payload  []byte
}

// ToRemoteEnvelope packs a PriorityEnvelope carrying an already-marshaled
// payload into its wire form.
func ToRemoteEnvelope[M any](e PriorityEnvelope[M], marshal func(M) ([]byte, error)) (RemoteEnvelope, error) {
	payload, err := marshal(e.Message)
	if err != nil {
		return RemoteEnvelope{}, err
	}

	return RemoteEnvelope{
		Priority: e.Priority,
		Channel:  uint8(e.Channel),
		Payload:  payload,
	}, nil
}

// FromRemoteEnvelope unpacks a RemoteEnvelope back into a PriorityEnvelope,
// using unmarshal to decode its payload.
func FromRemoteEnvelope[M any](re RemoteEnvelope, unmarshal func([]byte) (M, error)) (PriorityEnvelope[M], error) {
	msg, err := unmarshal(re.Payload)
	if err != nil {
		var zero PriorityEnvelope[M]

		return zero, err
	}

	return PriorityEnvelope[M]{
		Message:  msg,
		Priority: re.Priority,
		Channel:  Channel(re.Channel),
	}, nil
}
