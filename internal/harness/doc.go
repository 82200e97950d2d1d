// Package harness runs frame image re-import scenarios end to end.
//
// A scenario seeds an in-memory SQLite store, feeds a CSV document through
// csvsource and the importer, then checks the summary and the stored images.
//
// # Scenario Format
//
//	name: truncated_only
//	description: "Only truncated images are replaced"
//	threshold: 10
//	seed:
//	  - frame: 1
//	    image_length: 10
//	  - frame: 2
//	    image: "short"
//	  - frame: 3
//	    null_image: true
//	csv: |
//	  Frame,Frame_Data
//	  1,"data:image/jpeg;base64,FULL"
//	expect:
//	  updated: 1
//	  skipped: 0
//	  errored: 0
//	  unmatched: [4]
//	  images:
//	    - frame: 1
//	      image: FULL
//	    - frame: 2
//	      image_length: 5
//
// image_length seeds (or expects) an image of that many "A" characters.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/truncated_only.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
