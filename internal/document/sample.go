package document

// SampleOfficeSVG is a small office floor plan. Desks carry ids with the
// "dynamic" prefix; walls, the kitchen and the plant are static decoration.
const SampleOfficeSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="800" height="500" viewBox="0 0 800 500">
  <title>Office</title>
  <g id="walls" fill="none" stroke="#2f2f2f" stroke-width="4">
    <path id="wall_outline" d="M 10 10 H 790 V 490 H 10 Z"/>
    <path id="wall_meeting" d="M 280 10 V 160 H 520 V 10"/>
  </g>
  <rect id="kitchen" x="20" y="380" width="140" height="100" fill="#ddd"/>
  <path id="plant" d="M 180 440 c 10 -20 30 -20 40 0 s 30 20 40 0" fill="#6b6"/>
  <path d="M 40 150 h 120"/>
  <g id="desks" stroke="#444">
    <path id="dynamic_separate_desk" d="M 40 40 h 120 v 60 h -120 z"/>
    <path id="dynamic_conference_desk" d="M 300 40 l 200 0 l 0 100 l -200 0 z"/>
    <g id="middle">
      <path id="dynamic_middle_desk_1" d="M 200 200 h 80 v 50 h -80 z"/>
      <path id="dynamic_middle_desk_2" d="M 300 200 h 80 v 50 h -80 z"/>
      <path id="dynamic_middle_desk_3" d="M 200 270 h 80 v 50 h -80 z"/>
      <path id="dynamic_middle_desk_4" d="M 300 270 h 80 v 50 h -80 z"/>
      <path id="dynamic_middle_desk_5" d="M 200 340 h 80 v 50 h -80 z"/>
      <path id="dynamic_middle_desk_6" d="M 300 340 h 80 v 50 h -80 z"/>
    </g>
    <g id="right">
      <path id="dynamic_right_desk_1" d="M 600 180 L 720 180 L 720 230 L 600 230 Z"/>
      <path id="dynamic_right_desk_2" d="M 600 240 L 720 240 L 720 290 L 600 290 Z"/>
      <path id="dynamic_right_desk_3" d="M 600 300 L 720 300 L 720 350 L 600 350 Z"/>
      <path id="dynamic_right_desk_4" d="M 600 360 L 720 360 L 720 410 L 600 410 Z"/>
      <path id="dynamic_right_desk_5" d="M 600 420 L 720 420 L 720 470 L 600 470 Z"/>
    </g>
  </g>
</svg>
`

// SampleStyles is the demo palette: logical state to fill style.
func SampleStyles() map[int32]string {
	return map[int32]string{
		0: "rgba(47,47,47,0.2)",
		1: "rgba(153,255,153,0.2)",
		2: "rgba(255,153,153,0.2)",
		3: "rgba(179,107,107,0.2)",
		4: "rgba(255,100,80,0.2)",
		5: "rgba(107,148,179,0.2)",
	}
}

// SampleStates assigns a logical state to every desk of SampleOfficeSVG.
func SampleStates() map[string]int32 {
	return map[string]int32{
		"dynamic_separate_desk":   1,
		"dynamic_conference_desk": 0,
		"dynamic_middle_desk_1":   1,
		"dynamic_middle_desk_2":   1,
		"dynamic_middle_desk_3":   2,
		"dynamic_middle_desk_4":   2,
		"dynamic_middle_desk_5":   1,
		"dynamic_middle_desk_6":   1,
		"dynamic_right_desk_1":    1,
		"dynamic_right_desk_2":    2,
		"dynamic_right_desk_3":    1,
		"dynamic_right_desk_4":    1,
		"dynamic_right_desk_5":    1,
	}
}
