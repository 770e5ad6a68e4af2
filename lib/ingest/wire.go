// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bureau-foundation/sensor-harness/lib/codec"
)

// Protobuf field numbers from sensor.proto.
const (
	fieldSensorID  protowire.Number = 1
	fieldTimestamp protowire.Number = 2

	// DefaultMetricsField is the field number of the repeated metrics
	// field of SensorEvent.
	DefaultMetricsField protowire.Number = 3

	fieldMetricName   protowire.Number = 1
	fieldMetricValue  protowire.Number = 2
	fieldMetricLabels protowire.Number = 3

	fieldMapKey   protowire.Number = 1
	fieldMapValue protowire.Number = 2
)

var metricsField atomic.Int32

func init() {
	metricsField.Store(int32(DefaultMetricsField))
}

// SetMetricsField changes the field number counted as the metrics
// field of incoming protobuf events, for senders whose schema numbers
// it differently. Call it before serving. It does not affect CBOR.
func SetMetricsField(number protowire.Number) error {
	if !number.IsValid() || number == fieldSensorID || number == fieldTimestamp {
		return fmt.Errorf("invalid metrics field number %d", number)
	}
	metricsField.Store(int32(number))
	return nil
}

// MetricsField returns the field number currently counted as metrics.
func MetricsField() protowire.Number {
	return protowire.Number(metricsField.Load())
}

var (
	_ codec.WireMessage = (*Event)(nil)
	_ codec.WireMessage = (*Ack)(nil)
)

// MarshalWire encodes the event as a SensorEvent.
func (e *Event) MarshalWire() ([]byte, error) {
	var data []byte
	if e.SensorID != "" {
		data = protowire.AppendTag(data, fieldSensorID, protowire.BytesType)
		data = protowire.AppendString(data, e.SensorID)
	}
	if e.Timestamp != 0 {
		data = protowire.AppendTag(data, fieldTimestamp, protowire.VarintType)
		data = protowire.AppendVarint(data, uint64(e.Timestamp))
	}
	number := MetricsField()
	for index := range e.Metrics {
		data = protowire.AppendTag(data, number, protowire.BytesType)
		data = protowire.AppendBytes(data, e.Metrics[index].marshalWire())
	}
	return data, nil
}

// UnmarshalWire decodes a SensorEvent. Unknown fields are skipped, and
// every entry of the metrics field counts as a Metric even when its
// contents do not match the Metric layout.
func (e *Event) UnmarshalWire(data []byte) error {
	*e = Event{}
	number := MetricsField()
	for len(data) > 0 {
		field, wireType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case field == number && wireType == protowire.BytesType:
			value, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return protowire.ParseError(m)
			}
			e.Metrics = append(e.Metrics, unmarshalMetric(value))
			n = m
		case field == fieldSensorID && wireType == protowire.BytesType:
			value, m := protowire.ConsumeString(data)
			if m < 0 {
				return protowire.ParseError(m)
			}
			e.SensorID = value
			n = m
		case field == fieldTimestamp && wireType == protowire.VarintType:
			value, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return protowire.ParseError(m)
			}
			e.Timestamp = int64(value)
			n = m
		default:
			n = protowire.ConsumeFieldValue(field, wireType, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		data = data[n:]
	}
	return nil
}

func (m *Metric) marshalWire() []byte {
	var data []byte
	if m.Name != "" {
		data = protowire.AppendTag(data, fieldMetricName, protowire.BytesType)
		data = protowire.AppendString(data, m.Name)
	}
	if m.Value != 0 {
		data = protowire.AppendTag(data, fieldMetricValue, protowire.Fixed64Type)
		data = protowire.AppendFixed64(data, math.Float64bits(m.Value))
	}
	keys := make([]string, 0, len(m.Labels))
	for key := range m.Labels {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldMapKey, protowire.BytesType)
		entry = protowire.AppendString(entry, key)
		entry = protowire.AppendTag(entry, fieldMapValue, protowire.BytesType)
		entry = protowire.AppendString(entry, m.Labels[key])
		data = protowire.AppendTag(data, fieldMetricLabels, protowire.BytesType)
		data = protowire.AppendBytes(data, entry)
	}
	return data
}

// unmarshalMetric decodes what it can of a Metric. It stops at the
// first malformed field.
func unmarshalMetric(data []byte) Metric {
	var metric Metric
	for len(data) > 0 {
		field, wireType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return metric
		}
		data = data[n:]

		switch {
		case field == fieldMetricName && wireType == protowire.BytesType:
			value, m := protowire.ConsumeString(data)
			if m < 0 {
				return metric
			}
			metric.Name = value
			n = m
		case field == fieldMetricValue && wireType == protowire.Fixed64Type:
			value, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return metric
			}
			metric.Value = math.Float64frombits(value)
			n = m
		case field == fieldMetricLabels && wireType == protowire.BytesType:
			entry, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return metric
			}
			key, value, err := unmarshalLabel(entry)
			if err == nil {
				if metric.Labels == nil {
					metric.Labels = make(map[string]string)
				}
				metric.Labels[key] = value
			}
			n = m
		default:
			n = protowire.ConsumeFieldValue(field, wireType, data)
			if n < 0 {
				return metric
			}
		}
		data = data[n:]
	}
	return metric
}

func unmarshalLabel(data []byte) (key, value string, err error) {
	for len(data) > 0 {
		field, wireType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", "", protowire.ParseError(n)
		}
		data = data[n:]
		if wireType != protowire.BytesType || (field != fieldMapKey && field != fieldMapValue) {
			n = protowire.ConsumeFieldValue(field, wireType, data)
			if n < 0 {
				return "", "", protowire.ParseError(n)
			}
			data = data[n:]
			continue
		}
		text, m := protowire.ConsumeString(data)
		if m < 0 {
			return "", "", protowire.ParseError(m)
		}
		if field == fieldMapKey {
			key = text
		} else {
			value = text
		}
		data = data[m:]
	}
	return key, value, nil
}

var errAckNotEmpty = errors.New("acknowledgement carries unexpected fields")

// MarshalWire encodes the acknowledgement as google.protobuf.Empty.
func (*Ack) MarshalWire() ([]byte, error) { return nil, nil }

// UnmarshalWire accepts google.protobuf.Empty. Unknown fields are
// tolerated as long as they parse.
func (*Ack) UnmarshalWire(data []byte) error {
	for len(data) > 0 {
		field, wireType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errAckNotEmpty
		}
		data = data[n:]
		n = protowire.ConsumeFieldValue(field, wireType, data)
		if n < 0 {
			return errAckNotEmpty
		}
		data = data[n:]
	}
	return nil
}
