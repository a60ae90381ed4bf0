package bmp384

// Register map.
const (
	regChipID      = 0x00
	regErr         = 0x02
	regStatus      = 0x03
	regData0       = 0x04 // press xlsb..msb, then temp xlsb..msb (0x04..0x09)
	regSensorTime0 = 0x0C // 0x0C..0x0E
	regEvent       = 0x10
	regIntStatus   = 0x11
	regFIFOLength0 = 0x12
	regFIFOLength1 = 0x13
	regFIFOData    = 0x14
	regFIFOWtm0    = 0x15
	regFIFOWtm1    = 0x16
	regFIFOConfig1 = 0x17
	regFIFOConfig2 = 0x18
	regIntCtrl     = 0x19
	regIfConf      = 0x1A
	regPwrCtrl     = 0x1B
	regOSR         = 0x1C
	regODR         = 0x1D
	regConfig      = 0x1F
	regNVMParT1    = 0x31 // first of 21 calibration bytes
	regCmd         = 0x7E
)

const (
	chipID = 0x50

	cmdSoftReset       = 0xB6
	cmdFIFOFlush       = 0xB0
	cmdExtmodeEnMiddle = 0x34

	calibrationLen = 21
	fifoMaxLen     = 512

	spiReadBit = 0x80
)

// ERR_REG bits.
const (
	ErrorFatal byte = 1 << 0
	ErrorCmd   byte = 1 << 1
	ErrorConf  byte = 1 << 2
)

// STATUS bits.
const (
	StatusCommandReady byte = 1 << 4
	StatusPressReady   byte = 1 << 5
	StatusTempReady    byte = 1 << 6
)

// Event reports the EVENT register.
type Event uint8

const (
	EventNone               Event = 0
	EventPowerUpOrSoftReset Event = 1 << 0
)

// IntStatus is one INT_STATUS bit; the callback receives one per assertion.
type IntStatus uint8

const (
	IntFIFOWatermark IntStatus = 1 << 0
	IntFIFOFull      IntStatus = 1 << 1
	IntDataReady     IntStatus = 1 << 3
)

func (s IntStatus) String() string {
	switch s {
	case IntFIFOWatermark:
		return "fifo_watermark"
	case IntFIFOFull:
		return "fifo_full"
	case IntDataReady:
		return "data_ready"
	default:
		return "unknown"
	}
}

// Interface selects the serial protocol.
type Interface uint8

const (
	InterfaceI2C Interface = iota
	InterfaceSPI
)

func (i Interface) String() string {
	if i == InterfaceSPI {
		return "spi"
	}
	return "i2c"
}

// AddrPin is the 7-bit I2C address selected by the SDO pin.
type AddrPin uint8

const (
	AddrPinLow  AddrPin = 0x76
	AddrPinHigh AddrPin = 0x77
)

type SPIWire uint8

const (
	SPIWire4 SPIWire = 0
	SPIWire3 SPIWire = 1
)

type WatchdogPeriod uint8

const (
	WatchdogPeriod1p25ms WatchdogPeriod = 0
	WatchdogPeriod40ms   WatchdogPeriod = 1
)

// Mode is the PWR_CTRL power mode field.
type Mode uint8

const (
	ModeSleep  Mode = 0x00
	ModeForced Mode = 0x01
	ModeNormal Mode = 0x03
)

func (m Mode) String() string {
	switch m {
	case ModeSleep:
		return "sleep"
	case ModeForced, 0x02:
		return "forced"
	case ModeNormal:
		return "normal"
	default:
		return "invalid"
	}
}

type Oversampling uint8

const (
	Oversampling1x Oversampling = iota
	Oversampling2x
	Oversampling4x
	Oversampling8x
	Oversampling16x
	Oversampling32x
)

// ODR is the output data rate in normal mode.
type ODR uint8

const (
	ODR200Hz ODR = iota
	ODR100Hz
	ODR50Hz
	ODR25Hz
	ODR12p5Hz
	ODR6p25Hz
	ODR3p1Hz
	ODR1p5Hz
	ODR0p78Hz
	ODR0p39Hz
	ODR0p2Hz
	ODR0p1Hz
	ODR0p05Hz
	ODR0p02Hz
	ODR0p01Hz
	ODR0p006Hz
	ODR0p003Hz
	ODR0p0015Hz
)

// FilterCoefficient is the IIR filter coefficient.
type FilterCoefficient uint8

const (
	FilterCoeff0 FilterCoefficient = iota
	FilterCoeff1
	FilterCoeff3
	FilterCoeff7
	FilterCoeff15
	FilterCoeff31
	FilterCoeff63
	FilterCoeff127
)

type InterruptPinType uint8

const (
	InterruptPushPull  InterruptPinType = 0
	InterruptOpenDrain InterruptPinType = 1
)

type InterruptActiveLevel uint8

const (
	InterruptActiveLow  InterruptActiveLevel = 0
	InterruptActiveHigh InterruptActiveLevel = 1
)

type FIFODataSource uint8

const (
	FIFOSourceUnfiltered FIFODataSource = 0
	FIFOSourceFiltered   FIFODataSource = 1
)
