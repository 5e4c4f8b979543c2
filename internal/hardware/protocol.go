package hardware

import (
	"encoding/binary"
	"fmt"
	"time"
)

// 帧定义
const (
	FrameHeader byte = 0xAA
	FrameTail   byte = 0x55
	// 最小帧长度：帧头(1) + 地址(1) + 命令(1) + 数据长度(1) + CRC(2) + 帧尾(1)
	MinFrameLen = 7

	// BroadcastAddr 广播地址，命令对总线上所有车道终端生效
	BroadcastAddr byte = 0xFF
)

// 命令码定义
const (
	CmdGetEntries   byte = 0x47 // 读取通行计数与状态位
	CmdResetEntries byte = 0x52 // 清零通行计数
	CmdSetState     byte = 0x53 // 设置道闸状态（开/关）
	CmdSetCounters  byte = 0x43 // 下发剩余车位数
	CmdGetReaders   byte = 0x4B // 读取刷卡读头事件
	CmdAckReaders   byte = 0x41 // 确认刷卡读头事件
	CmdGetBarcode   byte = 0x42 // 读取条码读头事件
	CmdSetStrings   byte = 0x57 // 下发费率名称与票据文本
	CmdSetTime      byte = 0x54 // 校准终端时钟
	CmdShowMessage  byte = 0x4D // 在顾客显示屏显示消息

	CmdAck byte = 0x80 // 终端确认
	CmdNak byte = 0x81 // 终端拒绝
)

// 开闸原因码
const (
	ReasonNone    byte = 0 // 无
	ReasonManual  byte = 1 // 人工操作
	ReasonPrepay  byte = 2 // 储值卡
	ReasonTicket  byte = 3 // 停车票
	ReasonStaff   byte = 4 // 员工卡
	ReasonAuto    byte = 5 // 自动放行
)

// 道闸命令码
const (
	GateNone     byte = 0 // 无动作
	GateOpen     byte = 1 // 开闸
	GateClose    byte = 2 // 关闸
	GateInOpen   byte = 3 // 入口开闸
	GateInClose  byte = 4 // 入口关闸
	GateOutOpen  byte = 5 // 出口开闸
	GateOutClose byte = 6 // 出口关闸
)

// 刷卡读头事件状态
const (
	CardRead  byte = 0x03 // 读到卡片
	CardOn    byte = 0x04 // 卡片驻留
	CardOut   byte = 0x05 // 持卡车辆已驶出
	CardIn    byte = 0x06 // 持卡车辆已驶入
	CardEmpty byte = 0xFF // 无事件
)

// 条码读头事件状态
const (
	BarRead byte = 0x00 // 读到条码
	BarLeft byte = 0x01 // 持票车辆已离场
	BarNone byte = 0x02 // 无事件
)

// 数据区固定长度
const (
	EntryReportLen   = 5
	StateCommandLen  = 2
	PlaceCounterLen  = 2
	ReaderEventLen   = 12
	ReaderPairLen    = 2 * ReaderEventLen
	BarcodeEventLen  = 20
	ClockSettingLen  = 6
	TariffNameLen    = 20
	CheckLineLen     = 30
	DisplayStringMax = 8
	DisplayMessageLen = 80
)

var reasonNames = map[byte]string{
	ReasonNone:   "not",
	ReasonManual: "man",
	ReasonPrepay: "prepay",
	ReasonTicket: "talon",
	ReasonStaff:  "staff",
	ReasonAuto:   "auto",
}

var gateNames = map[byte]string{
	GateNone:     "no",
	GateOpen:     "open",
	GateClose:    "close",
	GateInOpen:   "in_open",
	GateInClose:  "in_close",
	GateOutOpen:  "out_open",
	GateOutClose: "out_close",
}

// ReasonName 返回开闸原因的文本名称
func ReasonName(reason byte) string {
	if name, ok := reasonNames[reason]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", reason)
}

// GateName 返回道闸命令的文本名称
func GateName(command byte) string {
	if name, ok := gateNames[command]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", command)
}

// Frame 总线数据帧
type Frame struct {
	Addr    byte   // 终端地址
	Command byte   // 命令码
	Data    []byte // 数据区
}

// Encode 将帧编码为总线字节序列
func (f *Frame) Encode() []byte {
	buf := make([]byte, 0, MinFrameLen+len(f.Data))
	buf = append(buf, FrameHeader, f.Addr, f.Command, byte(len(f.Data)))
	buf = append(buf, f.Data...)

	crc := CRC16XMODEM(buf[1 : 4+len(f.Data)])
	buf = append(buf, byte(crc>>8), byte(crc&0xFF), FrameTail)
	return buf
}

// DecodeFrame 从总线字节序列解析一帧
func DecodeFrame(raw []byte) (*Frame, error) {
	if len(raw) < MinFrameLen {
		return nil, fmt.Errorf("frame too short: %d < %d", len(raw), MinFrameLen)
	}
	if raw[0] != FrameHeader {
		return nil, fmt.Errorf("invalid frame header: 0x%02X", raw[0])
	}

	dataLen := int(raw[3])
	total := MinFrameLen + dataLen
	if len(raw) < total {
		return nil, fmt.Errorf("incomplete frame: %d < %d", len(raw), total)
	}
	if raw[total-1] != FrameTail {
		return nil, fmt.Errorf("invalid frame tail: 0x%02X", raw[total-1])
	}

	recv := binary.BigEndian.Uint16(raw[total-3 : total-1])
	calc := CRC16XMODEM(raw[1 : 4+dataLen])
	if recv != calc {
		return nil, fmt.Errorf("CRC mismatch: calc=0x%04X, recv=0x%04X", calc, recv)
	}

	f := &Frame{
		Addr:    raw[1],
		Command: raw[2],
	}
	if dataLen > 0 {
		f.Data = make([]byte, dataLen)
		copy(f.Data, raw[4:4+dataLen])
	}
	return f, nil
}

// CRC16XMODEM CRC16-XMODEM算法
func CRC16XMODEM(data []byte) uint16 {
	crc := uint16(0x0000)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// EntryReport 通行计数与状态位应答（位压缩布局）
//
// 字节0：传感器与钥匙开关位
// 字节1：配置项新鲜度与纸况位
// 字节2/3：自上次清零以来的进/出车辆数（增量，只可消费一次）
// 字节4：最近一次开闸原因码
type EntryReport struct {
	// 传感器与钥匙开关位
	DTS11 bool
	DTS12 bool
	Key1  bool
	In1   bool
	In2   bool
	Key2  bool
	DTS22 bool
	DTS21 bool

	// 终端侧配置是否已是本周期最新
	TimeFresh    bool // 时钟已校准
	MessageFresh bool // 票据文本已下发
	TariffFresh  bool // 费率显示已下发
	PlacesFresh  bool // 剩余车位已下发

	PaperNear bool // 纸将尽
	PaperOut  bool // 已缺纸

	InCount      uint8 // 驶入车辆数（增量）
	OutCount     uint8 // 驶出车辆数（增量）
	StatusReason uint8 // 最近一次开闸原因
}

// DecodeEntryReport 解析通行应答数据区
func DecodeEntryReport(data []byte) (*EntryReport, error) {
	if len(data) < EntryReportLen {
		return nil, fmt.Errorf("entry report too short: %d < %d", len(data), EntryReportLen)
	}

	b0, b1 := data[0], data[1]
	return &EntryReport{
		DTS11: b0&0x01 != 0,
		DTS12: b0&0x02 != 0,
		Key1:  b0&0x04 != 0,
		In1:   b0&0x08 != 0,
		In2:   b0&0x10 != 0,
		Key2:  b0&0x20 != 0,
		DTS22: b0&0x40 != 0,
		DTS21: b0&0x80 != 0,

		TimeFresh:    b1&0x01 != 0,
		MessageFresh: b1&0x02 != 0,
		TariffFresh:  b1&0x04 != 0,
		PlacesFresh:  b1&0x08 != 0,
		PaperNear:    b1&0x10 != 0,
		PaperOut:     b1&0x20 != 0,

		InCount:      data[2],
		OutCount:     data[3],
		StatusReason: data[4],
	}, nil
}

// Encode 编码通行应答数据区（测试与模拟终端使用）
func (r *EntryReport) Encode() []byte {
	var b0, b1 byte
	set := func(b *byte, mask byte, on bool) {
		if on {
			*b |= mask
		}
	}
	set(&b0, 0x01, r.DTS11)
	set(&b0, 0x02, r.DTS12)
	set(&b0, 0x04, r.Key1)
	set(&b0, 0x08, r.In1)
	set(&b0, 0x10, r.In2)
	set(&b0, 0x20, r.Key2)
	set(&b0, 0x40, r.DTS22)
	set(&b0, 0x80, r.DTS21)

	set(&b1, 0x01, r.TimeFresh)
	set(&b1, 0x02, r.MessageFresh)
	set(&b1, 0x04, r.TariffFresh)
	set(&b1, 0x08, r.PlacesFresh)
	set(&b1, 0x10, r.PaperNear)
	set(&b1, 0x20, r.PaperOut)

	return []byte{b0, b1, r.InCount, r.OutCount, r.StatusReason}
}

// StateCommand 道闸状态设置命令
type StateCommand struct {
	Reason  byte // 开闸原因码
	Command byte // 道闸命令码
}

// Encode 编码道闸状态命令数据区
func (s *StateCommand) Encode() []byte {
	return []byte{s.Reason, s.Command}
}

// IsOpen 判断是否为开闸命令（开闸命令码为奇数，关闸为偶数）
func (s *StateCommand) IsOpen() bool {
	return s.Command%2 == 1
}

func (s *StateCommand) String() string {
	return fmt.Sprintf("{reason: %s, command: %s}", ReasonName(s.Reason), GateName(s.Command))
}

// PlaceCounter 剩余车位数（大端序16位）
type PlaceCounter struct {
	FreePlaces uint16
}

// Encode 编码剩余车位数据区
func (p *PlaceCounter) Encode() []byte {
	buf := make([]byte, PlaceCounterLen)
	binary.BigEndian.PutUint16(buf, p.FreePlaces)
	return buf
}

// ReaderEvent 刷卡读头事件
type ReaderEvent struct {
	Elapsed uint8  // 事件发生后经过的秒数
	Status  uint8  // 事件状态码
	Serial  string // 卡片序列号
}

// DecodeReaderEvent 解析单个读头事件
func DecodeReaderEvent(data []byte) (*ReaderEvent, error) {
	if len(data) < ReaderEventLen {
		return nil, fmt.Errorf("reader event too short: %d < %d", len(data), ReaderEventLen)
	}
	return &ReaderEvent{
		Elapsed: data[0],
		Status:  data[1],
		Serial:  trimPadding(data[2:ReaderEventLen]),
	}, nil
}

// Encode 编码读头事件（测试与模拟终端使用）
func (e *ReaderEvent) Encode() []byte {
	buf := make([]byte, ReaderEventLen)
	buf[0] = e.Elapsed
	buf[1] = e.Status
	copy(buf[2:], e.Serial)
	return buf
}

// ReaderPair 入口与出口读头一次轮询快照
type ReaderPair struct {
	In  ReaderEvent
	Out ReaderEvent
}

// DecodeReaderPair 解析读头轮询应答数据区
func DecodeReaderPair(data []byte) (*ReaderPair, error) {
	if len(data) < ReaderPairLen {
		return nil, fmt.Errorf("reader pair too short: %d < %d", len(data), ReaderPairLen)
	}
	in, err := DecodeReaderEvent(data[:ReaderEventLen])
	if err != nil {
		return nil, err
	}
	out, err := DecodeReaderEvent(data[ReaderEventLen:ReaderPairLen])
	if err != nil {
		return nil, err
	}
	return &ReaderPair{In: *in, Out: *out}, nil
}

// Encode 编码读头轮询应答数据区
func (p *ReaderPair) Encode() []byte {
	return append(p.In.Encode(), p.Out.Encode()...)
}

// BarcodeEvent 条码读头事件
type BarcodeEvent struct {
	Elapsed uint8  // 事件发生后经过的秒数
	Status  uint8  // 事件状态码
	Code    string // 条码内容
}

// DecodeBarcodeEvent 解析条码应答数据区
func DecodeBarcodeEvent(data []byte) (*BarcodeEvent, error) {
	if len(data) < BarcodeEventLen {
		return nil, fmt.Errorf("barcode event too short: %d < %d", len(data), BarcodeEventLen)
	}
	return &BarcodeEvent{
		Elapsed: data[0],
		Status:  data[1],
		Code:    trimPadding(data[2:BarcodeEventLen]),
	}, nil
}

// Encode 编码条码应答数据区（测试与模拟终端使用）
func (e *BarcodeEvent) Encode() []byte {
	buf := make([]byte, BarcodeEventLen)
	buf[0] = e.Elapsed
	buf[1] = e.Status
	copy(buf[2:], e.Code)
	return buf
}

// DisplayStrings 费率名称与票据文本
type DisplayStrings struct {
	TariffNames [DisplayStringMax]string // 最多8个，每个20字节
	CheckLines  [DisplayStringMax]string // 最多8行，每行30字节
}

// Encode 编码显示文本数据区，超长内容截断，不足部分补零
func (d *DisplayStrings) Encode() []byte {
	buf := make([]byte, DisplayStringMax*TariffNameLen+DisplayStringMax*CheckLineLen)
	for i, name := range d.TariffNames {
		copyPadded(buf[i*TariffNameLen:(i+1)*TariffNameLen], name)
	}
	base := DisplayStringMax * TariffNameLen
	for i, line := range d.CheckLines {
		copyPadded(buf[base+i*CheckLineLen:base+(i+1)*CheckLineLen], line)
	}
	return buf
}

// ClockSetting 终端时钟设置
type ClockSetting struct {
	Year   uint8 // 2000年起的偏移
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// NewClockSetting 用给定时刻构造时钟设置
func NewClockSetting(t time.Time) *ClockSetting {
	return &ClockSetting{
		Year:   uint8(t.Year() % 2000),
		Month:  uint8(t.Month()),
		Day:    uint8(t.Day()),
		Hour:   uint8(t.Hour()),
		Minute: uint8(t.Minute()),
		Second: uint8(t.Second()),
	}
}

// Encode 编码时钟数据区
func (c *ClockSetting) Encode() []byte {
	return []byte{c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second}
}

// EncodeMessage 编码顾客显示屏消息：定长80字节，空格填充，末尾附显示方式
func EncodeMessage(message string, style byte) []byte {
	buf := make([]byte, DisplayMessageLen+1)
	for i := range buf[:DisplayMessageLen] {
		buf[i] = ' '
	}
	copy(buf[:DisplayMessageLen], message)
	buf[DisplayMessageLen] = style
	return buf
}

// copyPadded 将字符串复制进定长区域，剩余部分保持零
func copyPadded(dst []byte, s string) {
	copy(dst, s)
}

// trimPadding 去掉定长字段尾部的零填充
func trimPadding(data []byte) string {
	end := len(data)
	for end > 0 && data[end-1] == 0 {
		end--
	}
	return string(data[:end])
}
