package app

// Version is the mcuforge release version, also the default package version
// for the archive step.
const Version = "0.2.0"

// ProjectURL points at the project home, shown by -version.
const ProjectURL = "https://github.com/vk/mcuforge"
