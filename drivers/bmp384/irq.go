package bmp384

// intOrder is the dispatch priority of IRQHandler.
var intOrder = [...]IntStatus{IntFIFOWatermark, IntFIFOFull, IntDataReady}

// IRQHandler reads INT_STATUS (clear-on-read) and calls the callback once
// per asserted source, watermark first, then full, then data ready. It does
// no other bus I/O; the callback runs synchronously in the caller's context.
func (d *Device) IRQHandler() error {
	if err := d.ready(); err != nil {
		return err
	}
	st, err := d.getReg(regIntStatus)
	if err != nil {
		d.log.Debugf("bmp384: read int status failed: %v", err)
		return err
	}
	if d.callback == nil {
		return nil
	}
	for _, s := range intOrder {
		if IntStatus(st)&s != 0 {
			d.callback(s)
		}
	}
	return nil
}
