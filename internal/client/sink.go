package client

import (
	"errors"

	"go.uber.org/zap"

	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
)

// frameSink 将解码事件转为协议应答与对外回调
type frameSink struct {
	cc *conn
}

func (s *frameSink) OnFrame(payload []byte) {
	c := s.cc.c
	// 每个合法帧都必须应答 ACK
	s.cc.reply(soundweb.ACK)
	if c.m != nil {
		c.m.FramesTotal.WithLabelValues("ok").Inc()
	}
	if c.hooks.OnMessage != nil {
		c.hooks.OnMessage(payload)
	}

	cmd, err := soundweb.DecodeCommand(payload)
	if err != nil {
		reason := "unrecognized_command"
		if errors.Is(err, soundweb.ErrMalformedSetValue) {
			reason = "malformed_set_value"
		}
		if c.m != nil {
			c.m.CodecErrors.WithLabelValues(reason).Inc()
		}
		c.logger.Warn("drop inbound payload",
			zap.String("conn_id", s.cc.id),
			zap.String("reason", reason),
			zap.Binary("payload", payload),
			zap.Error(err),
		)
		return
	}
	if c.m != nil {
		c.m.CommandsTotal.WithLabelValues("in", cmd.Code().String()).Inc()
	}

	switch v := cmd.(type) {
	case soundweb.SetValue:
		c.logger.Debug("set value received",
			zap.String("group", v.Group.String()),
			zap.Uint8("id", v.ID),
			zap.Uint16("value", v.Value),
		)
		if c.hooks.OnSetValue != nil {
			c.hooks.OnSetValue(v)
		}
	case soundweb.RawMsg:
		if c.hooks.OnRawMessage != nil {
			c.hooks.OnRawMessage(v.Data)
		}
	}
}

func (s *frameSink) OnChecksumInvalid(ev soundweb.Event) {
	c := s.cc.c
	s.cc.reply(soundweb.NAK)
	if c.m != nil {
		c.m.FramesTotal.WithLabelValues("checksum_invalid").Inc()
	}
	c.logger.Warn("checksum invalid",
		zap.String("conn_id", s.cc.id),
		zap.Uint8("received", ev.Received),
		zap.Uint8("residual", ev.Residual),
		zap.Binary("body", ev.Payload),
	)
}

func (s *frameSink) OnAck() {
	s.control("ack")
}

// OnNak 设备请求重发；协议未定义重发流程，仅记录
func (s *frameSink) OnNak() {
	s.control("nak")
}

func (s *frameSink) control(kind string) {
	c := s.cc.c
	if c.m != nil {
		c.m.ControlTotal.WithLabelValues(kind).Inc()
	}
	c.logger.Debug("control byte received", zap.String("conn_id", s.cc.id), zap.String("kind", kind))
}
