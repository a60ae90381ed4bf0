package bmp384

// I2C is the capability set the driver needs from an I²C transport.
// addr is the 7-bit device address. Read MUST issue the register address
// followed by a repeated-start read of len(buf) bytes.
type I2C interface {
	Open() error
	Close() error
	Read(addr, reg uint8, buf []byte) error
	Write(addr, reg uint8, buf []byte) error
}

// SPI is the capability set the driver needs from an SPI transport.
// Read clocks out reg and then clocks len(buf) bytes into buf within one
// chip-select assertion. Register addressing (read bit, dummy byte) is
// applied by the driver, not the transport.
type SPI interface {
	Open() error
	Close() error
	Read(reg uint8, buf []byte) error
	Write(reg uint8, buf []byte) error
}
