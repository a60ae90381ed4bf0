package config

// Built-in settings per board. Keys not present fall back to Default.

const cfgRPi4B = `{
  "interface": "spi",
  "spi_port": "SPI0.0",
  "int_pin": "GPIO17",
  "odr": "12.5hz",
  "filter": "coeff15"
}`

const cfgRPi4BI2C = `{
  "interface": "i2c",
  "addr": "low",
  "i2c_bus": "1",
  "int_pin": "GPIO17"
}`

// Pico: i2c0 on GP4/GP5, INT on GP15.
const cfgPico = `{
  "interface": "i2c",
  "addr": "low",
  "i2c_bus": "I2C0",
  "int_pin": "GP15",
  "odr": "12.5hz",
  "filter": "coeff15"
}`

var embeddedConfigs = map[string][]byte{
	"pico":      []byte(cfgPico),
	"rpi4b":     []byte(cfgRPi4B),
	"rpi4b-i2c": []byte(cfgRPi4BI2C),
}
