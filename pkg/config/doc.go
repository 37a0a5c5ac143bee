/*
Package config loads sortrc configuration files.

	            +-------------+
	            |   Config    |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+-----+ +----+----+ +-----+-----+
	|   YAML    | |   HCL   | |   JSON    |
	+-----------+ +---------+ +-----------+

🎯 A config names the source directory, where each category is sorted to,
which extensions belong to a category and which file names are never
auto-routed.

🔍 Example (.sortrc.yaml):

	source: ~/Downloads
	destinations:
	  audio: music
	  document: /srv/docs
	categories:
	  image: [jpg, jpeg, png, heic]
	ignore_patterns:
	  - "*.part"
	  - "*.crdownload"

The same file in HCL:

	source = "~/Downloads"
	destinations = {
	  audio = "music"
	}
	ignore_patterns = ["*.part"]

Relative destination paths are resolved under the source directory. A
relative source is resolved against the directory holding the config file,
and a missing source defaults to that directory.
*/
package config
