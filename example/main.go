package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	vl53l1x "github.com/Pryadka/vl53l1"
	"github.com/swdee/go-i2c"
)

func main() {

	i2cbus := flag.String("b", "/dev/i2c-0", "Path to I2C bus to use")
	flag.Parse()

	// Open I2C bus (adjust bus number and default address as needed)
	conn, err := i2c.New(vl53l1x.Address, *i2cbus)

	if err != nil {
		log.Fatal(err)
	}

	defer conn.Close()

	// create new sensor instance running in Short mode with a 50ms timing
	// budget
	sensor, err := vl53l1x.New(conn, vl53l1x.Short, 50000)

	if err != nil {
		log.Fatal(err)
	}

	if err := sensor.Init(vl53l1x.Voltage2V8); err != nil {
		log.Fatalf("Init failed: %v", err)
	}

	// define a region of interest. This is not necessary so can be
	// commented out if not required.
	setROI(sensor)

	// Start continuous ranging. ST recommends the period to be 5ms longer
	// than the timing budget (50 + 5ms = 55ms).
	if err := sensor.StartContinuous(55); err != nil {
		log.Fatalf("Start continuous failed: %v", err)
	}

	// Read measurements
	for i := 0; i < 10; i++ {

		data, err := sensor.Read(true)

		if err != nil {
			log.Printf("Read error: %v (timed out: %v)", err, sensor.TimeoutOccurred())
		} else {
			fmt.Printf("Distance: %d mm (status: %s)\n", data.RangeMM,
				data.RangeStatus)
		}

		time.Sleep(200 * time.Millisecond)
	}

	// Stop continuous ranging
	if err := sensor.StopContinuous(); err != nil {
		log.Fatalf("Stop continuous failed: %v", err)
	}
}

// setROI sets the region of interest
func setROI(sensor *vl53l1x.VL53L1X) {

	if err := sensor.SetROISize(12, 12); err != nil {
		log.Fatalf("Setting ROI size failed: %v", err)
	}

	if err := sensor.SetROICenter(199); err != nil {
		log.Fatalf("Setting ROI center failed: %v", err)
	}

	// load current region of interest setting
	width, height, err := sensor.GetROISize()

	if err != nil {
		log.Fatalf("Get ROI size: %v", err)
	}

	center, err := sensor.GetROICenter()

	if err != nil {
		log.Fatalf("Get ROI center: %v", err)
	}

	log.Printf("ROI size: %dx%d", width, height)
	log.Printf("ROI center: %d", center)
}
