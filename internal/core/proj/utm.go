package proj

import (
	"math"

	"github.com/paulmach/orb"
)

// WGS84 ellipsoid
const (
	semiMajor  = 6378137.0
	flattening = 1 / 298.257223563
	utmScale   = 0.9996
	falseEast  = 500000.0
	falseNorth = 10000000.0
)

// UTM is a transverse mercator zone on the WGS84 datum
// (+proj=utm +zone=N [+south] +ellps=WGS84 +datum=WGS84 +units=m).
type UTM struct {
	code    string
	zone    int
	south   bool
	lon0    float64
	e2, ep2 float64
}

func NewUTM(code string, zone int, south bool) *UTM {
	e2 := flattening * (2 - flattening)
	return &UTM{
		code:  code,
		zone:  zone,
		south: south,
		lon0:  float64(zone*6-183) * math.Pi / 180,
		e2:    e2,
		ep2:   e2 / (1 - e2),
	}
}

func (u *UTM) Code() string { return u.code }

func (u *UTM) meridianArc(phi float64) float64 {
	e2 := u.e2
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// FromWGS84 maps lon/lat degrees to easting/northing meters.
func (u *UTM) FromWGS84(p orb.Point) orb.Point {
	phi := p.Lat() * math.Pi / 180
	lam := p.Lon() * math.Pi / 180

	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	n := semiMajor / math.Sqrt(1-u.e2*sinPhi*sinPhi)
	t := math.Tan(phi) * math.Tan(phi)
	c := u.ep2 * cosPhi * cosPhi
	a := cosPhi * (lam - u.lon0)
	m := u.meridianArc(phi)

	x := utmScale*n*(a+(1-t+c)*math.Pow(a, 3)/6+
		(5-18*t+t*t+72*c-58*u.ep2)*math.Pow(a, 5)/120) + falseEast
	y := utmScale * (m + n*math.Tan(phi)*(a*a/2+
		(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*t+t*t+600*c-330*u.ep2)*math.Pow(a, 6)/720))
	if u.south {
		y += falseNorth
	}
	return orb.Point{x, y}
}

// ToWGS84 maps easting/northing meters back to lon/lat degrees.
func (u *UTM) ToWGS84(p orb.Point) orb.Point {
	x := p.X() - falseEast
	y := p.Y()
	if u.south {
		y -= falseNorth
	}
	e2 := u.e2
	e4 := e2 * e2
	e6 := e4 * e2
	mu := y / utmScale / (semiMajor * (1 - e2/4 - 3*e4/64 - 5*e6/256))
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))

	phi1 := mu + (3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sin1, cos1 := math.Sin(phi1), math.Cos(phi1)
	n1 := semiMajor / math.Sqrt(1-e2*sin1*sin1)
	t1 := math.Tan(phi1) * math.Tan(phi1)
	c1 := u.ep2 * cos1 * cos1
	r1 := semiMajor * (1 - e2) / math.Pow(1-e2*sin1*sin1, 1.5)
	d := x / (n1 * utmScale)

	phi := phi1 - (n1*math.Tan(phi1)/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*u.ep2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*u.ep2-3*c1*c1)*math.Pow(d, 6)/720)
	lam := u.lon0 + (d-(1+2*t1+c1)*math.Pow(d, 3)/6+
		(5-2*c1+28*t1-3*c1*c1+8*u.ep2+24*t1*t1)*math.Pow(d, 5)/120)/cos1

	return orb.Point{lam * 180 / math.Pi, phi * 180 / math.Pi}
}
